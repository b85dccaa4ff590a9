package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/tubefetch/internal/app"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressWebSocketHandler streams job snapshots to the browser
type ProgressWebSocketHandler struct {
	manager *app.DownloadManager
	logger  *zap.Logger
}

// NewProgressWebSocketHandler creates a new progress stream handler
func NewProgressWebSocketHandler(manager *app.DownloadManager, log *zap.Logger) *ProgressWebSocketHandler {
	return &ProgressWebSocketHandler{
		manager: manager,
		logger:  log,
	}
}

// HandleWebSocket handles GET /api/v1/downloads/:id/progress. Every snapshot
// is sent as a JSON text message; the socket closes once the job finishes.
func (h *ProgressWebSocketHandler) HandleWebSocket(c *gin.Context) {
	id := c.Param("id")

	updates, stop, err := h.manager.Subscribe(id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer stop()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("Progress client connected",
		zap.String("id", id),
		zap.String("remote_addr", c.Request.RemoteAddr))

	done := readUntilClosed(conn)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "download finished"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				h.logger.Debug("Failed to send progress", zap.String("id", id), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are handled.
// The returned channel closes when the connection drops.
func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}
