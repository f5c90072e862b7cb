package entity

import (
	"time"

	"github.com/google/uuid"
)

const ProductStatusActive = "active"

type Product struct {
	Id          uuid.UUID
	VendorId    uuid.UUID
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       int
	Status      string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
