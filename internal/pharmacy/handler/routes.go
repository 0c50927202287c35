package handler

import "github.com/go-chi/chi/v5"

// Handlers groups the pharmacy endpoints
type Handlers struct {
	Customers *CustomerHandler
	Scans     *ScanHandler
	Notes     *NoteHandler
	Profile   *ProfileHandler
	Dashboard *DashboardHandler
}

// Register mounts the pharmacy routes on r. Callers apply authentication.
func (h *Handlers) Register(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.Customers.List)
		r.Post("/", h.Customers.Create)
		r.Get("/{id}", h.Customers.Get)
		r.Get("/{id}/scans", h.Customers.Scans)
		r.Get("/{id}/status", h.Customers.Status)
		r.Get("/{id}/notes", h.Notes.List)
		r.Post("/{id}/notes", h.Notes.Create)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Patch("/{id}", h.Notes.Update)
		r.Delete("/{id}", h.Notes.Delete)
	})

	r.Route("/scans", func(r chi.Router) {
		r.Get("/", h.Scans.List)
		r.Post("/", h.Scans.Create)
		r.Get("/export", h.Scans.Export)
	})

	r.Get("/profile", h.Profile.Get)
	r.Put("/profile", h.Profile.Update)

	r.Get("/dashboard/stats", h.Dashboard.GetStats)
	r.Get("/dashboard/graph", h.Dashboard.GetGraph)
}
