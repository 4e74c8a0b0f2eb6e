package domain

import (
	"time"

	"github.com/google/uuid"
)

// Banner is a promotional strip on the storefront home page
type Banner struct {
	ID        uuid.UUID `json:"_id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Img       string    `json:"img"`
	File      *string   `json:"file"`
	Preview   string    `json:"preview,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StorySlide is a short vertical video shown in the stories carousel
type StorySlide struct {
	ID          uuid.UUID `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CTA         string    `json:"cta"`
	Link        string    `json:"link"`
	VideoURL    string    `json:"videoUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
