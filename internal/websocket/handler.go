package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"packliste/internal/auth"
)

// HandleWebSocket upgrades the connection and runs it as a device of the
// authenticated account. The route sits behind the auth middleware, so a
// missing user id means a broken setup rather than a bad request.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // clients authenticate via bearer token, not origin
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		NewClient(hub, conn, userID).Run(r.Context())
	}
}
