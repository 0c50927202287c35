package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authentication is by access token, not cookie, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionStream pushes the signed-in user's session changes over a
// websocket until either side closes it.
func (h *AuthHandler) SessionStream(w http.ResponseWriter, r *http.Request) {
	userID, err := owner.SubjectID(r.Context())
	if err != nil {
		httputil.Error(w, errors.Unauthorized("not authenticated"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("session stream upgrade failed")
		return
	}
	defer conn.Close()

	changes, unsubscribe := h.identity.Subscribe(userID)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug().Err(err).Str("user_id", userID).Msg("session stream closed")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case change, ok := <-changes:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
