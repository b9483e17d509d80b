package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alebed/magebot/internal/bot"
	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/prompt"
	"github.com/alebed/magebot/internal/provider"
	"github.com/alebed/magebot/internal/session"
)

const maxBodyBytes = 64 << 10 // chat turns are small; anything bigger is abuse

type chatHandler struct {
	bot    *bot.Orchestrator
	logger log.Logger
}

type chatRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type chatResponse struct {
	Reply          string          `json:"reply"`
	Usage          *provider.Usage `json:"usage,omitempty"`
	RecipeComplete bool            `json:"recipe_complete,omitempty"`
	Degraded       bool            `json:"degraded,omitempty"`
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id is required", h.logger)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "missing_text", "text is required", h.logger)
		return
	}

	res, err := h.bot.HandleUtterance(r.Context(), req.UserID, req.Text)
	if err != nil {
		h.logger.Error("handling utterance", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:          res.Text,
		Usage:          res.Usage,
		RecipeComplete: res.RecipeComplete,
		Degraded:       res.Degraded,
	}, h.logger)
}

type commandRequest struct {
	UserID   string `json:"user_id"`
	Command  string `json:"command"`
	Argument string `json:"argument"`
}

type commandResponse struct {
	Reply string `json:"reply"`
}

// command handles POST /api/v1/command.
func (h *chatHandler) command(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id is required", h.logger)
		return
	}

	reply, err := h.bot.HandleCommand(r.Context(), req.UserID, req.Command, req.Argument)
	if err != nil {
		status, code := commandErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("handling command", "command", req.Command, "error", err)
			writeError(w, status, code, "internal server error", h.logger)
			return
		}
		writeError(w, status, code, err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Reply: reply}, h.logger)
}

// commandErrorStatus maps command failures onto HTTP statuses. Validation
// failures are client errors; everything else is internal.
func commandErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, bot.ErrUnknownCommand):
		return http.StatusBadRequest, "unknown_command"
	case errors.Is(err, prompt.ErrUnknownMode),
		errors.Is(err, session.ErrInvalidTemperature),
		errors.Is(err, session.ErrInvalidMaxTokens),
		errors.Is(err, session.ErrUnknownBackend),
		errors.Is(err, session.ErrUnknownModel):
		return http.StatusBadRequest, "validation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger log.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", logger)
		return false
	}
	return true
}
