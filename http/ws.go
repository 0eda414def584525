package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 16
)

// streamClient 单个预测流连接
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// handlePredictStream 每个文本帧是一次预测请求，按顺序逐帧应答
func (h *Handlers) handlePredictStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		return
	}
	defer h.metrics.WSConnected()()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &streamClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		client.writePump(ctx, h.logger)
	}()

	client.readPump(ctx, h)
	close(client.send)
	<-writerDone
}

// readPump 读取请求帧直到连接关闭
func (c *streamClient) readPump(ctx context.Context, h *Handlers) {
	if h.maxBody > 0 {
		c.conn.SetReadLimit(h.maxBody)
	}
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("websocket closed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		status, payload := h.predictJSON(ctx, bytes.NewReader(message))
		if status >= 500 {
			h.logger.Warn("stream prediction failed", zap.Int("status", status))
		}
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error("encode stream response", zap.Error(err))
			return
		}

		select {
		case c.send <- data:
		case <-ctx.Done():
			return
		}
	}
}

// writePump 写应答并定期发送ping
func (c *streamClient) writePump(ctx context.Context, logger *zap.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
