package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a product category
type Category struct {
	ID        uuid.UUID `json:"_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ParentRef is the populated parent of a subcategory
type ParentRef struct {
	ID   uuid.UUID `json:"_id"`
	Name string    `json:"name"`
}

// Sub is a subcategory; it always belongs to exactly one category
type Sub struct {
	ID        uuid.UUID  `json:"_id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ParentID  uuid.UUID  `json:"-"`
	Parent    *ParentRef `json:"parent"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
