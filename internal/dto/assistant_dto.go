package dto

import (
	"github.com/google/uuid"
)

type ProcessMessageRequest struct {
	ConversationId string `json:"conversation_id" validate:"required,max=128"`
	Text           string `json:"text" validate:"required,max=2000"`
	// Products is an optional pre-filtered list. When present the catalog is
	// not queried and the answer may only mention these products.
	Products []ProductDTO `json:"products,omitempty" validate:"omitempty,max=50,dive"`

	VendorId uuid.UUID `json:"-"`
	UserId   string    `json:"-"`
}

type ProductDTO struct {
	Id          uuid.UUID `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price" validate:"gte=0"`
	Stock       int       `json:"stock" validate:"gte=0"`
}

type AssistantMessage struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

type ProcessMessageResponse struct {
	Success bool             `json:"success"`
	Message AssistantMessage `json:"message"`
}

type StreamAnswerRequest struct {
	Question   string `json:"question" query:"question" validate:"required,max=2000"`
	DocumentId string `json:"document_id" query:"document_id" validate:"omitempty,uuid"`

	VendorId uuid.UUID `json:"-"`
}

// StreamEvent is one frame of a streamed answer (SSE data or websocket text).
type StreamEvent struct {
	Type     string `json:"type"` // "token", "fallback", "done" or "error"
	Content  string `json:"content,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}
