package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the per-conversation assistant state, keyed by vendor and
// conversation id.
type Conversation struct {
	Id        string                `json:"id"`
	VendorId  uuid.UUID             `json:"vendorId"`
	UserId    string                `json:"userId,omitempty"`
	Cart      CartState             `json:"cart"`
	History   []ConversationMessage `json:"history,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

func NewConversation(vendorID uuid.UUID, id, userID string) *Conversation {
	return &Conversation{
		Id:        id,
		VendorId:  vendorID,
		UserId:    userID,
		Cart:      CartState{Phase: CartPhaseIdle},
		UpdatedAt: time.Now(),
	}
}

// AppendHistory records a turn and keeps at most max messages.
func (c *Conversation) AppendHistory(max int, messages ...ConversationMessage) {
	c.History = append(c.History, messages...)
	if max > 0 && len(c.History) > max {
		c.History = append([]ConversationMessage(nil), c.History[len(c.History)-max:]...)
	}
}

// Clone returns a deep copy, so stored conversations never alias a caller's.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.History = append([]ConversationMessage(nil), c.History...)
	out.Cart.Candidates = append([]CartProduct(nil), c.Cart.Candidates...)
	out.Cart.Items = append([]CartItem(nil), c.Cart.Items...)
	if c.Cart.Selected != nil {
		selected := *c.Cart.Selected
		out.Cart.Selected = &selected
	}
	return &out
}
