package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/service"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// CustomerService is what the customer endpoints need
type CustomerService interface {
	Search(ctx context.Context, q string) ([]*domain.Customer, error)
	Get(ctx context.Context, id string) (*domain.Customer, error)
	Create(ctx context.Context, req *service.CreateCustomerRequest) (*domain.Customer, error)
}

// CustomerHandler handles customer search, selection and creation
type CustomerHandler struct {
	customers CustomerService
	scans     ScanService
	logger    *logger.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers CustomerService, scans ScanService, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		scans:     scans,
		logger:    log,
	}
}

// List searches customers by name; without q it lists all of them
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	customers, err := h.customers.Search(r.Context(), q)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, customers, &httputil.Meta{
		Total: int64(len(customers)),
		Query: q,
	})
}

// Get gets a customer by ID
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, customer)
}

// Create creates a customer
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCustomerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	customer, err := h.customers.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, customer)
}

// Scans lists a customer's scan history
func (h *CustomerHandler) Scans(w http.ResponseWriter, r *http.Request) {
	scans, err := h.scans.ListByCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, scans, &httputil.Meta{Total: int64(len(scans))})
}

// Status returns the customer's collection status overview
func (h *CustomerHandler) Status(w http.ResponseWriter, r *http.Request) {
	overview, err := h.scans.Overview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, overview)
}
