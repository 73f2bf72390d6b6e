package membership

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/staff-access/internal/auth"
	"github.com/frahmantamala/staff-access/internal/team"
	"github.com/frahmantamala/staff-access/internal/transport"
	"github.com/frahmantamala/staff-access/pkg/logger"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*auth.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor == nil {
		h.Logger.Error("membership handler: actor not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return actor, true
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.Logger.Error("invalid user id", "value", raw)
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	teamID := chi.URLParam(r, "teamID")

	var dto AssignDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Assign: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	role, _ := team.ParseRole(dto.Role)
	result, err := h.Service.Assign(r.Context(), actor.ID, dto.UserID, teamID, role)
	if err != nil {
		h.Logger.Error("Assign: service error", "error", err, "team_id", teamID, "user_id", dto.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	teamID := chi.URLParam(r, "teamID")
	userID, ok := h.userIDParam(w, r, "userID")
	if !ok {
		return
	}

	var dto UpdateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateRole: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	role, _ := team.ParseRole(dto.Role)
	result, err := h.Service.UpdateRole(r.Context(), actor.ID, userID, teamID, role)
	if err != nil {
		h.Logger.Error("UpdateRole: service error", "error", err, "team_id", teamID, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	teamID := chi.URLParam(r, "teamID")
	userID, ok := h.userIDParam(w, r, "userID")
	if !ok {
		return
	}

	result, err := h.Service.Remove(r.Context(), actor.ID, userID, teamID)
	if err != nil {
		h.Logger.Error("Remove: service error", "error", err, "team_id", teamID, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	teamID := chi.URLParam(r, "teamID")

	var dto BulkAssignDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("BulkAssign: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	role, _ := team.ParseRole(dto.Role)
	result, err := h.Service.BulkAssign(r.Context(), actor.ID, dto.UserIDs, teamID, role)
	if err != nil {
		h.Logger.Error("BulkAssign: service error", "error", err, "team_id", teamID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	members, err := h.Service.ListMembers(r.Context(), teamID)
	if err != nil {
		h.Logger.Error("ListMembers: service error", "error", err, "team_id", teamID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"team_id": teamID,
		"members": members,
	})
}

func (h *Handler) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUnassigned(r.Context())
	if err != nil {
		h.Logger.Error("ListUnassigned: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"staff": users,
	})
}

func (h *Handler) GetUserTeams(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r, "userID")
	if !ok {
		return
	}

	view, err := h.Service.GetUserTeams(r.Context(), userID)
	if err != nil {
		h.Logger.Error("GetUserTeams: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetStats(r.Context())
	if err != nil {
		h.Logger.Error("GetStats: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	userID, ok := h.userIDParam(w, r, "userID")
	if !ok {
		return
	}

	delta, err := h.Service.Recalculate(r.Context(), actor.ID, userID)
	if err != nil {
		h.Logger.Error("Recalculate: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, delta)
}

func (h *Handler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	results, err := h.Service.RecalculateAll(r.Context(), actor.ID)
	if err != nil {
		h.Logger.Error("RecalculateAll: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	repaired := 0
	for _, res := range results {
		if res.Delta != nil && res.Delta.Changed() {
			repaired++
		}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results":  results,
		"total":    len(results),
		"repaired": repaired,
	})
}
