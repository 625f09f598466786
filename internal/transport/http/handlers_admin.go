package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sportsfest/pkg/platform/httputil"
)

type adminHandler struct {
	logger *slog.Logger
	admin  AdminService
}

func newAdminHandler(admin AdminService, logger *slog.Logger) *adminHandler {
	return &adminHandler{logger: logger, admin: admin}
}

func (h *adminHandler) register(r chi.Router, g Gates) {
	r.With(g.Admin).Get("/admin/stats", h.handleStats)
}

func (h *adminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.admin.Overview(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}
