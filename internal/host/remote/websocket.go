package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linsmod/webf/internal/logging"
	"github.com/linsmod/webf/internal/wire"
	"go.uber.org/zap"
)

// ErrTransportClosed is returned by round trips on a closed transport.
var ErrTransportClosed = errors.New("transport closed")

// WebSocket multiplexes concurrent round trips over one connection,
// correlating replies by envelope id.
type WebSocket struct {
	conn   *websocket.Conn
	logger *logging.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan wire.Envelope
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// DialWebSocket connects to a host server's /v1/ws endpoint.
func DialWebSocket(ctx context.Context, url string, header http.Header, logger *logging.Logger) (*WebSocket, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	ws := &WebSocket{
		conn:    conn,
		logger:  logger,
		pending: make(map[string]chan wire.Envelope),
		done:    make(chan struct{}),
	}
	go ws.readLoop()
	return ws, nil
}

func (ws *WebSocket) Name() string { return "ws" }

func (ws *WebSocket) readLoop() {
	defer close(ws.done)
	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			ws.fail(err)
			return
		}
		env, err := wire.Unmarshal(data)
		if err != nil {
			ws.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		ws.mu.Lock()
		ch, ok := ws.pending[env.ID]
		delete(ws.pending, env.ID)
		ws.mu.Unlock()
		if !ok {
			ws.logger.Warn("reply for unknown request", zap.String("id", env.ID))
			continue
		}
		ch <- env
	}
}

func (ws *WebSocket) fail(err error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.err == nil {
		ws.err = err
	}
}

func (ws *WebSocket) RoundTrip(ctx context.Context, env wire.Envelope) (wire.Envelope, error) {
	data, err := wire.Marshal(env)
	if err != nil {
		return wire.Envelope{}, err
	}

	ch := make(chan wire.Envelope, 1)
	ws.mu.Lock()
	if ws.err != nil {
		err := ws.err
		ws.mu.Unlock()
		return wire.Envelope{}, err
	}
	ws.pending[env.ID] = ch
	ws.mu.Unlock()

	if err := ws.write(ctx, data); err != nil {
		ws.forget(env.ID)
		return wire.Envelope{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		ws.forget(env.ID)
		return wire.Envelope{}, ctx.Err()
	case <-ws.done:
		ws.forget(env.ID)
		ws.mu.Lock()
		defer ws.mu.Unlock()
		return wire.Envelope{}, ws.err
	}
}

func (ws *WebSocket) write(ctx context.Context, data []byte) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	_ = ws.conn.SetWriteDeadline(deadline)
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

func (ws *WebSocket) forget(envID string) {
	ws.mu.Lock()
	delete(ws.pending, envID)
	ws.mu.Unlock()
}

// Close sends a close frame, closes the connection and waits for the reader.
func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		ws.fail(ErrTransportClosed)
		ws.writeMu.Lock()
		_ = ws.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.writeMu.Unlock()
		err = ws.conn.Close()
		<-ws.done
	})
	return err
}
