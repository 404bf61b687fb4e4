package session

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrTimeout      = errors.New("operation timeout")
	ErrNotConnected = errors.New("not connected")
	ErrNoActiveRoom = errors.New("no active room")
	ErrEmptyText    = errors.New("message text is empty")
	ErrEmptyTempID  = errors.New("tempId is required")
)

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Command is a client-to-server command on the channel.
type Command struct {
	ID     int64       `json:"id"`
	Cmd    string      `json:"cmd"` // "subscribe", "unsubscribe", "publish"
	Params interface{} `json:"params"`
}

// SubscribeParams are parameters for a subscribe command.
type SubscribeParams struct {
	Topic string `json:"topic"` // chats/{roomId}
	Token string `json:"token"` // Client-generated subscription token
}

// UnsubscribeParams are parameters for an unsubscribe command.
type UnsubscribeParams struct {
	Token string `json:"token"`
}

// PublishParams are parameters for a publish command.
type PublishParams struct {
	Topic   string          `json:"topic"` // chats/{roomId}/send or chats/{roomId}/read
	Payload json.RawMessage `json:"payload"`
}

// Response is a command response from the server.
type Response struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"` // "subscribed", "unsubscribed", "error", "ok"
	Msg  json.RawMessage `json:"msg"`
}

// ErrorMsg is the message content for an "error" response.
type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is an inbound data event on the channel.
type Event struct {
	Type  string          `json:"type"`  // "message", "read"
	Topic string          `json:"topic"` // chats/{roomId}
	Msg   json.RawMessage `json:"msg"`
}

// MessageEvent is the payload of a "message" event: a server-confirmed chat
// message, echoing the sender's tempId when one was attached.
type MessageEvent struct {
	ID       int64  `json:"id"`
	TempID   string `json:"temp_id,omitempty"`
	RoomID   int64  `json:"room_id"`
	SenderID int64  `json:"sender_id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
	Ts       int64  `json:"ts"` // µs since epoch
}

// ReadEvent is the payload of a "read" event: a broadcast read receipt.
type ReadEvent struct {
	RoomID            int64 `json:"room_id"`
	ReaderID          int64 `json:"reader_id"`
	LastSeenMessageID int64 `json:"last_seen_message_id"`
}

// OutboundMessage is the payload published to chats/{roomId}/send.
type OutboundMessage struct {
	RoomID   int64  `json:"room_id"`
	SenderID int64  `json:"sender_id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
	TempID   string `json:"temp_id"`
}

// Config configures a Session.
type Config struct {
	WSURL              string        // WebSocket URL
	SubscribeTimeout   time.Duration // Timeout for subscribe/unsubscribe commands
	ReconnectBaseDelay time.Duration // Base wait time for reconnection
	ReconnectMaxDelay  time.Duration // Max wait time for reconnection
	ConfirmTimeout     time.Duration // Deadline for pending entries to confirm
	PingTimeout        time.Duration // Transport stale-connection threshold
	WriteTimeout       time.Duration // Transport write deadline
	BufferSize         int           // Transport message buffer size
	HistorySize        int           // Messages fetched before live attach
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SubscribeTimeout:   10 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		ConfirmTimeout:     15 * time.Second,
		PingTimeout:        60 * time.Second,
		WriteTimeout:       5 * time.Second,
		BufferSize:         1000,
		HistorySize:        50,
	}
}
