package model

// DeliveryState tracks a message's progress from local send to server confirmation.
type DeliveryState int

const (
	// Pending means the message was published locally but the server has not
	// echoed a confirmed copy yet. Identity is the tempId.
	Pending DeliveryState = iota

	// Confirmed means the server assigned a permanent id. Identity is the id.
	Confirmed

	// Failed means no confirmation arrived within the confirm timeout.
	Failed
)

// String returns a human-readable state name.
func (s DeliveryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Identity is the session identity attached to the channel on connect.
type Identity struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Token       string `json:"-"` // Bearer token, never serialized
}

// Message is a single chat message in a room.
//
// Before confirmation a message is addressable only by TempID; after
// confirmation only by ID. The reconciliation log guarantees the two never
// refer to distinct entries.
type Message struct {
	ID       int64  `json:"id,omitempty"`      // Server-assigned, 0 until confirmed
	TempID   string `json:"temp_id,omitempty"` // Client-generated correlation id
	RoomID   int64  `json:"room_id"`
	SenderID int64  `json:"sender_id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`

	// Timestamp is µs since epoch. For pending entries this is the local
	// send time; confirmed entries carry the server timestamp.
	Timestamp int64 `json:"ts"`

	State DeliveryState `json:"-"`
}

// ReadReceipt announces the last message a reader has seen in a room.
// Fire-and-forget; not retained client-side after the publish.
type ReadReceipt struct {
	RoomID            int64 `json:"room_id"`
	ReaderID          int64 `json:"reader_id"`
	LastSeenMessageID int64 `json:"last_seen_message_id"`
}

// RoomSummary is one row of the room listing used for unread aggregation.
// Refreshed wholesale on each poll, never partially mutated.
type RoomSummary struct {
	RoomID             int64  `json:"room_id"`
	BuyerID            int64  `json:"buyer_id"`
	SellerID           int64  `json:"seller_id"`
	ProductID          int64  `json:"product_id"`
	UnreadCount        int    `json:"unread_count"`
	LastMessagePreview string `json:"last_message_preview"`
	UpdatedAt          int64  `json:"updated_at"` // µs since epoch
}
