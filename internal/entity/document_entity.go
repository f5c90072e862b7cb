package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is a knowledge-base document owned by a vendor (policies, FAQs,
// manuals). Only active documents are indexed.
type Document struct {
	Id        uuid.UUID
	VendorId  uuid.UUID
	Title     string
	Content   string
	Type      string
	Category  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}
