package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/middleware"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/service"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
)

const maxBodyBytes = 64 << 10

// MessageHandler handles the chat endpoints.
type MessageHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(chat *service.ChatService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{chat: chat, logger: log}
}

// Reply handles POST /api/reply
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ReplyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.chat.Reply(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("reply failed",
			zap.String("correlation_id", logger.ShortID(middleware.GetCorrelationID(ctx))),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /api/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	email := strings.TrimSpace(q.Get("email"))

	limit := service.DefaultHistoryLimit
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	includeHidden := false
	if v := q.Get("include_hidden"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "include_hidden must be a boolean")
			return
		}
		includeHidden = parsed
	}

	resp, err := h.chat.History(ctx, email, limit, includeHidden)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to get messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
