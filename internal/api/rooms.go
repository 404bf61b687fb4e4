package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/marketlane/chatlink/internal/model"
)

// ErrSelfChat is returned when a provisioning request targets the caller's
// own listing. Enforced client-side; the chat action is hidden on own
// products, so reaching this is a caller bug.
var ErrSelfChat = errors.New("cannot open a chat room with yourself")

// ListRooms fetches the room summaries visible to the given user.
func (c *Client) ListRooms(ctx context.Context, userID int64) ([]model.RoomSummary, error) {
	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(userID, 10))

	var resp RoomsResponse
	if err := c.get(ctx, "/rooms", query, &resp); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rooms := make([]model.RoomSummary, len(resp.Rooms))
	for i, r := range resp.Rooms {
		rooms[i] = r.ToModel()
	}
	return rooms, nil
}

// GetMessages fetches recent message history for a room, oldest first.
// Used to pre-populate the log before the live subscription attaches.
func (c *Client) GetMessages(ctx context.Context, roomID int64, size int) ([]model.Message, error) {
	query := url.Values{}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}

	var resp MessagesResponse
	path := "/rooms/" + strconv.FormatInt(roomID, 10) + "/messages"
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get messages for room %d: %w", roomID, err)
	}

	msgs := make([]model.Message, len(resp.Messages))
	for i, m := range resp.Messages {
		msgs[i] = m.ToModel()
	}
	return msgs, nil
}

// OpenRoom resolves-or-creates the room for a (buyer, seller, product[, deal])
// tuple. The server is idempotent: repeated calls with the same tuple return
// the same room. A non-success status surfaces as an error because the user
// cannot proceed without a room id.
func (c *Client) OpenRoom(ctx context.Context, req OpenRoomRequest) (*OpenRoomResult, error) {
	if req.BuyerID == req.SellerID {
		return nil, ErrSelfChat
	}
	if req.SellerID == 0 || req.ProductID == 0 {
		return nil, fmt.Errorf("open room: seller and product are required")
	}

	var result OpenRoomResult
	if err := c.post(ctx, "/chats/open", req, &result); err != nil {
		return nil, fmt.Errorf("open room: %w", err)
	}
	return &result, nil
}

// GetMe fetches the current session identity. Required before connecting the
// channel so the identity can be attached as metadata.
func (c *Client) GetMe(ctx context.Context) (*model.Identity, error) {
	var resp MeResponse
	if err := c.get(ctx, "/users/me", nil, &resp); err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	return &model.Identity{
		UserID:      resp.UserID,
		DisplayName: resp.DisplayName,
		Token:       c.token,
	}, nil
}
