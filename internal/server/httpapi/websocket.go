package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"splendoura/backend/internal/auth/service"
)

// WebSocket timing constants.
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsHello is the first frame sent after a successful upgrade.
type wsHello struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleWebSocket authenticates the handshake and upgrades the connection.
// The access token is resolved from the query parameter, the
// "bearer.<token>" subprotocol, or the cookie, in that order. The
// connection is force-closed when the presented token's expiry passes;
// clients reconnect with a fresh token.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := wsTokenFrom(r)
	if token == "" {
		writeUnauthorized(w)
		return
	}
	principal, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		if !service.IsRejection(err) {
			s.logger.Error("websocket authenticate failed", "error", err)
			writeInternalError(w, "internal server error")
			return
		}
		writeUnauthorized(w)
		return
	}

	// When the token arrived via the subprotocol list the client also
	// offers the plain "bearer" protocol; echo it back to complete the
	// negotiation.
	var respHeader http.Header
	if fromWSProtocol(r) != "" {
		respHeader = http.Header{"Sec-WebSocket-Protocol": {"bearer"}}
	}
	conn, err := upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		// Upgrade already wrote the handshake error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.logger.Info("websocket connected",
		"user_id", principal.UserID,
		"session_id", principal.SessionID,
	)
	go s.serveWS(conn, principal)
}

// serveWS runs the connection until the client disconnects or the access
// token expires.
func (s *Server) serveWS(conn *websocket.Conn, principal *service.Principal) {
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(wsHello{
		Type:      "hello",
		UserID:    principal.UserID,
		SessionID: principal.SessionID,
		ExpiresAt: principal.ExpiresAt,
	}); err != nil {
		return
	}

	conn.SetReadLimit(maxRequestBodySize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	expiry := time.NewTimer(time.Until(principal.ExpiresAt))
	defer expiry.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-expiry.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			//nolint:errcheck // Best-effort close frame; the deadline bounds it.
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "token expired"))
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
