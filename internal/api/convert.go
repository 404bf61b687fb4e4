package api

import "github.com/marketlane/chatlink/internal/model"

// ToModel converts an API room summary to the internal model.
func (r APIRoom) ToModel() model.RoomSummary {
	return model.RoomSummary{
		RoomID:             r.RoomID,
		BuyerID:            r.BuyerID,
		SellerID:           r.SellerID,
		ProductID:          r.ProductID,
		UnreadCount:        r.UnreadCount,
		LastMessagePreview: r.LastMessagePreview,
		UpdatedAt:          r.UpdatedAt,
	}
}

// ToModel converts an API message to the internal model. History messages
// are confirmed by definition.
func (m APIMessage) ToModel() model.Message {
	return model.Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		ImageURL:  m.ImageURL,
		Timestamp: m.Timestamp,
		State:     model.Confirmed,
	}
}
