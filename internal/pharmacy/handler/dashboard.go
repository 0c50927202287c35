package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/service"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/stats"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// DashboardService is what the dashboard endpoints need
type DashboardService interface {
	Stats(ctx context.Context, rng *stats.DateRange) (*stats.Summary, error)
	Graph(ctx context.Context) (*service.Graph, error)
}

// DashboardHandler handles dashboard statistics
type DashboardHandler struct {
	dashboard DashboardService
	location  *time.Location
	logger    *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard DashboardService, loc *time.Location, log *logger.Logger) *DashboardHandler {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardHandler{
		dashboard: dashboard,
		location:  loc,
		logger:    log,
	}
}

// GetStats returns summary statistics, optionally for a date range
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, h.location)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.dashboard.Stats(r.Context(), rng)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// GetGraph returns the recent daily collection series
func (h *DashboardHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	graph, err := h.dashboard.Graph(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, graph)
}
