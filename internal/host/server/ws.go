package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/linsmod/webf/internal/shared/id"
	"github.com/linsmod/webf/internal/wire"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket serves one bridge connection. Requests are handled
// concurrently; replies are matched by the client through envelope ids.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	connID := id.NewConnectionID()
	logger := s.logger.With(zap.String("connection", connID.String()))

	s.metrics.IncWSConnections()
	defer s.metrics.DecWSConnections()

	ctx, cancel := context.WithCancel(c.Request.Context())
	var (
		writeMu  sync.Mutex
		inflight sync.WaitGroup
	)
	defer func() {
		cancel()
		inflight.Wait()
		_ = conn.Close()
		logger.Debug("websocket closed")
	}()
	logger.Debug("websocket connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		req, err := wire.Unmarshal(data)
		if err != nil {
			logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		s.metrics.RecordWSMessage("in", string(req.Kind))

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			reply := s.dispatcher.Handle(ctx, req)
			out, err := wire.Marshal(reply)
			if err != nil {
				logger.Error("encode reply", zap.Error(err))
				return
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				logger.Warn("websocket write failed", zap.Error(err))
				return
			}
			s.metrics.RecordWSMessage("out", string(reply.Kind))
		}()
	}
}
