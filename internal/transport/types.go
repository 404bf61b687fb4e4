package transport

import (
	"errors"
	"time"

	"github.com/marketlane/chatlink/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string         // WebSocket URL (e.g., wss://chat.marketlane.io/ws)
	Identity     model.Identity // Attached as channel metadata on dial
	PingTimeout  time.Duration  // Max time without ping before considering connection stale
	WriteTimeout time.Duration  // Write deadline for sends
	BufferSize   int            // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}
