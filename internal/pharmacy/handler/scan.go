package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/export"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/repository"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/service"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// ScanService is what the scan endpoints need
type ScanService interface {
	Record(ctx context.Context, req *service.RecordScanRequest) (*domain.Scan, error)
	List(ctx context.Context, filter repository.ScanFilter) ([]*domain.Scan, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Scan, error)
	Overview(ctx context.Context, customerID string) (*domain.StatusOverview, error)
}

// ScanHandler handles scan entry, history and export
type ScanHandler struct {
	scans    ScanService
	location *time.Location
	logger   *logger.Logger
}

// NewScanHandler creates a new scan handler. loc is used to read bare dates
// and to render export times.
func NewScanHandler(scans ScanService, loc *time.Location, log *logger.Logger) *ScanHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ScanHandler{
		scans:    scans,
		location: loc,
		logger:   log,
	}
}

// List lists scans, optionally filtered by date range and customer
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	scans, err := h.scans.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, scans, &httputil.Meta{Total: int64(len(scans))})
}

// Create records a pack collection
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.RecordScanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	scan, err := h.scans.Record(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, scan)
}

// Export serves the scan history as an XLSX download
func (h *ScanHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	scans, err := h.scans.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	data, err := export.ScansWorkbook(scans, h.location)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate scan export")
		httputil.Error(w, errors.Internal("failed to generate export", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(time.Now().In(h.location))))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *ScanHandler) filter(r *http.Request) (repository.ScanFilter, error) {
	rng, err := parseRange(r, h.location)
	if err != nil {
		return repository.ScanFilter{}, err
	}

	query := struct {
		CustomerID string `json:"customer_id" validate:"omitempty,uuid"`
	}{CustomerID: strings.TrimSpace(r.URL.Query().Get("customer_id"))}
	if err := httputil.Validate(&query); err != nil {
		return repository.ScanFilter{}, err
	}

	filter := repository.ScanFilter{CustomerID: query.CustomerID}
	if rng != nil {
		filter.From = &rng.Start
		filter.To = &rng.End
	}
	return filter, nil
}
