package http

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
	gate    ports.AuthGate
}

func NewUserHandler(service ports.UserService, gate ports.AuthGate) *UserHandler {
	return &UserHandler{
		service: service,
		gate:    gate,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(h.gate.CurrentUserID(r.Context()))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}
