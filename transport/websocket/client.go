package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playstake/arena-backend/internal/pkg"
)

const (
	writeWait      = 10 * time.Second
	readWait       = 60 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 32
)

// client wraps one live socket. All outbound traffic goes through a bounded
// send channel drained by a dedicated write pump, so a slow or dead consumer
// never stalls a move handler or the tick loop: when the buffer is full the
// oldest queued message is dropped to make room.
type client struct {
	connID string
	conn   *websocket.Conn
	logger *slog.Logger

	// userID is set once by the auth handler and never changes afterwards.
	userID string

	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, logger *slog.Logger) *client {
	return &client{
		connID: pkg.GenerateConnectionID(),
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
	}
}

// enqueue queues a message for the write pump without blocking.
func (that *client) enqueue(message []byte) {
	that.sendMu.Lock()
	defer that.sendMu.Unlock()

	if that.closed {
		return
	}

	for {
		select {
		case that.send <- message:
			return
		default:
		}

		select {
		case <-that.send:
		default:
		}
	}
}

// close shuts the send channel exactly once; the write pump drains what is
// left and closes the socket. Safe to call from any goroutine.
func (that *client) close() {
	that.sendMu.Lock()
	defer that.sendMu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.send)
}

// writePump is the sole writer of the underlying socket.
func (that *client) writePump() {
	defer that.conn.Close()

	for message := range that.send {
		_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			that.logger.Debug("failed to write message", "connID", that.connID, "error", err)
			return
		}
	}

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = that.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
