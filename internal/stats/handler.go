package stats

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/tasky/internal/httputil"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
}

// Get returns aggregate counts across all users
// @Summary      Public statistics
// @Description  Task and user totals, refreshed at most once per cache period
// @Tags         stats
// @Produce      json
// @Success      200 {object} Stats
// @Router       /stats [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, h.service.Get(r.Context()), http.StatusOK)
}
