package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pack is a bundle of catalog products sold as a unit.
// ProductIDs keeps the caller's order; Products is filled on read.
type Pack struct {
	ID          uuid.UUID   `json:"_id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Price       float64     `json:"price"`
	ProductIDs  []uuid.UUID `json:"-"`
	Products    []*Product  `json:"products"`
	Media       []Media     `json:"media"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
