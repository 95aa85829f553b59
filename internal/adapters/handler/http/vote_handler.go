package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
	gate    ports.AuthGate
}

func NewVoteHandler(service ports.VoteService, gate ports.AuthGate) *VoteHandler {
	return &VoteHandler{
		service: service,
		gate:    gate,
	}
}

type voteRequest struct {
	OptionID string `json:"option_id"`
}

// CastVote godoc
// @Summary      Votes on a poll, moving an earlier vote if there is one
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400
// @Failure      401
// @Failure      404
// @Failure      502
// @Router       /api/polls/{id}/votes [post]
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.CastVote(r.Context(), ports.VoteInput{
		PollID:   chi.URLParam(r, "id"),
		OptionID: req.OptionID,
		UserID:   h.gate.CurrentUserID(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (h *VoteHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")
	optionID, err := h.service.MyVote(r.Context(), pollID, h.gate.CurrentUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"poll_id": pollID, "option_id": optionID})
}
