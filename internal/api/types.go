package api

// RoomsResponse from GET /rooms
type RoomsResponse struct {
	Rooms []APIRoom `json:"rooms"`
}

// APIRoom represents one room summary from the room listing endpoint.
type APIRoom struct {
	RoomID             int64  `json:"room_id"`
	BuyerID            int64  `json:"buyer_id"`
	SellerID           int64  `json:"seller_id"`
	ProductID          int64  `json:"product_id"`
	UnreadCount        int    `json:"unread_count"`
	LastMessagePreview string `json:"last_message_preview"`
	UpdatedAt          int64  `json:"updated_at"` // µs since epoch
}

// MessagesResponse from GET /rooms/{id}/messages
type MessagesResponse struct {
	Messages []APIMessage `json:"messages"`
}

// APIMessage represents one message from the history endpoint.
type APIMessage struct {
	ID        int64  `json:"id"`
	RoomID    int64  `json:"room_id"`
	SenderID  int64  `json:"sender_id"`
	Text      string `json:"text"`
	ImageURL  string `json:"image_url,omitempty"`
	Timestamp int64  `json:"ts"` // µs since epoch
}

// OpenRoomRequest for POST /chats/open.
type OpenRoomRequest struct {
	BuyerID   int64 `json:"buyer_id"`
	SellerID  int64 `json:"seller_id"`
	ProductID int64 `json:"product_id"`
	DealID    int64 `json:"deal_id,omitempty"`
}

// OpenRoomResult from POST /chats/open.
type OpenRoomResult struct {
	RoomID     int64  `json:"room_id"`
	Created    bool   `json:"created"`
	Identifier string `json:"identifier"`
}

// MeResponse from GET /users/me.
type MeResponse struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
}
