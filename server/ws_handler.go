package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"fader/core/auth"
	"fader/core/events"
	"fader/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// ProjectEventsHandler upgrades the connection and subscribes it to a
// project's event stream. Browsers cannot set headers on websocket dials, so
// the token rides in the query string.
func (h *APIHandler) ProjectEventsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	token := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &events.Client{
		Hub:       h.hub,
		Conn:      conn,
		Send:      make(chan []byte, 64),
		ProjectID: projectID,
		UserID:    claims.UserID,
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
