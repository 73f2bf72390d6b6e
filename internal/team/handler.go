package team

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/staff-access/internal/transport"
	"github.com/frahmantamala/staff-access/pkg/logger"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Catalog:     catalog,
	}
}

func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"teams":       h.Catalog.ListTeams(),
		"permissions": h.Catalog.AllPermissions(),
	})
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	def, err := h.Catalog.GetTeam(teamID)
	if err != nil {
		h.Logger.Error("GetTeam: unknown team", "team_id", teamID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, def)
}
