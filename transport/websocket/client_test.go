package websocket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Enqueue(t *testing.T) {
	t.Run("A full buffer drops the oldest message", func(t *testing.T) {
		// Given: a client whose write pump is stalled
		conn := &client{send: make(chan []byte, 2)}

		// When: more messages arrive than the buffer holds
		for i := 0; i < 5; i++ {
			conn.enqueue([]byte(fmt.Sprintf("msg-%d", i)))
		}

		// Then: only the newest messages survive, in order
		require.Len(t, conn.send, 2)
		assert.Equal(t, []byte("msg-3"), <-conn.send)
		assert.Equal(t, []byte("msg-4"), <-conn.send)
	})

	t.Run("Enqueue after close is a no-op", func(t *testing.T) {
		conn := &client{send: make(chan []byte, 2)}

		conn.close()

		assert.NotPanics(t, func() { conn.enqueue([]byte("late")) })
	})

	t.Run("Close is idempotent", func(t *testing.T) {
		conn := &client{send: make(chan []byte, 2)}

		conn.close()

		assert.NotPanics(t, conn.close)
	})
}
