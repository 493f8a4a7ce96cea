package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mentoro/arena/internal/middleware"
	"github.com/mentoro/arena/internal/realtime"
	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
)

func (h *HandlerManager) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.allowedOrigin,
	}
}

func (h *HandlerManager) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.Config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeWS handles GET /ws. The connection replaces any previous one for the user.
func (h *HandlerManager) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := realtime.NewClient(userID, conn, h.Config.WSSendBuffer)
	h.Registry.Register(userID, client)
	logger.Info("Websocket connected", "user_id", userID, "connections", h.Registry.Count())

	go client.WritePump()
	client.ReadPump(func(message []byte) {
		h.handleInbound(client, message)
	})

	h.Registry.Release(userID, client)
	logger.Info("Websocket disconnected", "user_id", userID)
}

func (h *HandlerManager) handleInbound(client *realtime.Client, raw []byte) {
	userID := client.UserID

	if h.Limiter != nil && !h.Limiter.CheckUserLimit(userID) {
		sendError(client, errors.New(errors.ErrCodeRateLimitExceeded, "too many messages"))
		return
	}

	var msg realtime.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendError(client, errors.New(errors.ErrCodeValidation, "invalid message"))
		return
	}
	if msg.MatchID == "" {
		sendError(client, errors.New(errors.ErrCodeValidation, "match_id is required"))
		return
	}

	var err error
	switch msg.Type {
	case realtime.TypeJoinMatch:
		err = h.Battles.JoinRoom(context.Background(), msg.MatchID, userID)
	case realtime.TypeMatchMessage:
		err = h.Battles.RelayChat(msg.MatchID, userID, msg.Content)
	case realtime.TypeCodeUpdate:
		err = h.Battles.RelayCode(msg.MatchID, userID, msg.Code, msg.Cursor)
	default:
		err = errors.New(errors.ErrCodeValidation, "unknown message type")
	}

	if err != nil {
		sendError(client, err)
	}
}

func sendError(client *realtime.Client, err error) {
	code := errors.CodeOf(err)
	message := "request failed"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && statusForCode(code) < http.StatusInternalServerError {
		message = appErr.Message
	}
	if code == "" {
		code = errors.ErrCodeInternalError
	}

	payload, _ := json.Marshal(realtime.ErrorMessage{Type: realtime.TypeError, Error: code, Message: message})
	if sendErr := client.Send(payload); sendErr != nil {
		logger.Debug("Dropped error reply", "user_id", client.UserID, "error", sendErr)
	}
}
