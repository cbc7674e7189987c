package ws

import (
	"net/http"
	"time"

	"tradefeed/internal/exchange/fanout"
	"tradefeed/internal/exchange/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// writeTimeout bounds each send so one stalled client cannot hold its
// writer goroutine indefinitely.
const writeTimeout = 5 * time.Second

const eventTradeExecuted = "trade.executed"

// Event is the envelope pushed to websocket subscribers for each
// accepted trade.
type Event struct {
	Event string      `json:"event"`
	Data  model.Trade `json:"data"`
}

// Handler upgrades HTTP requests to websocket connections and streams
// accepted trades to the client until it disconnects.
type Handler struct {
	hub      *fanout.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *fanout.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handle is the gin route for GET /ws/trades.
func (h *Handler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe()
	remote := conn.RemoteAddr().String()
	h.logger.Info("websocket subscriber connected", zap.String("remote", remote))

	defer func() {
		sub.Close()
		_ = conn.Close()
		h.logger.Info("websocket subscriber disconnected", zap.String("remote", remote))
	}()

	// Reader goroutine: client frames are discarded, a read error means
	// the peer went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case trade, ok := <-sub.Trades():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(Event{Event: eventTradeExecuted, Data: trade}); err != nil {
				h.logger.Warn("websocket write failed",
					zap.String("remote", remote), zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
