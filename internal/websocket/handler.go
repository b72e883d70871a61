package websocket

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/routiner/internal/schedule"
	"github.com/dukerupert/routiner/internal/tracker"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to WebSocket
// and runs them as Hub clients. The optional year and month query parameters
// pick the first month shown; otherwise the current month is used.
func HandleWebSocket(hub *Hub, source tracker.Source, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month := schedule.Current()
		if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
			month.Year = y
		}
		if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil {
			month.Month = time.Month(m)
		}
		if !month.Valid() {
			http.Error(w, "invalid month", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // single household, served on the LAN
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, source, logger)
		client.Run(r.Context(), month)
	}
}
