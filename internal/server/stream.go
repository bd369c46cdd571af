package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// handleItemsStream upgrades the request to a websocket and pushes the full
// collection snapshot immediately and then after every accepted mutation.
func (h *httpHandler) handleItemsStream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	// The client never sends application data; the read loop only notices
	// closes and protocol errors.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	initial, err := h.inventory.Snapshot(ctx)
	if err != nil {
		h.logger.Error("stream initial snapshot failed", zap.Error(err))
		return
	}
	if err := h.writeSnapshot(conn, Snapshot(initial)); err != nil {
		return
	}

	pings := time.NewTicker(streamPingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-stream:
			if !ok {
				return
			}
			if err := h.writeSnapshot(conn, snapshot); err != nil {
				h.logger.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-pings.C:
			deadline := time.Now().Add(streamWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h *httpHandler) writeSnapshot(conn *websocket.Conn, snapshot Snapshot) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(snapshot)
}
