package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType distinguishes pictures from clips in a media gallery
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaTypeFromMIME maps an upload content type to a gallery media type.
// Anything that is not an image is treated as a video.
func MediaTypeFromMIME(contentType string) MediaType {
	if strings.HasPrefix(contentType, "image") {
		return MediaTypeImage
	}
	return MediaTypeVideo
}

// Media is one gallery entry attached to a product or pack
type Media struct {
	ID   uuid.UUID `json:"_id"`
	Src  string    `json:"src"`
	Type MediaType `json:"type"`
	Alt  string    `json:"alt"`
}

// SizeVariant is a purchasable size with its own price
type SizeVariant struct {
	Size  string  `json:"size"`
	Price float64 `json:"price"`
}

// ColorVariant is a colour swatch, optionally illustrated by an uploaded picture
type ColorVariant struct {
	ID    uuid.UUID `json:"_id"`
	Value string    `json:"value"`
	Src   string    `json:"src,omitempty"`
}

// TechSpec is one line of a product's technical sheet
type TechSpec struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Product represents a product in the catalog
type Product struct {
	ID                 uuid.UUID         `json:"_id"`
	Title              string            `json:"Title"`
	Slug               string            `json:"slug"`
	Description        string            `json:"Description"`
	Price              float64           `json:"Price"`
	Promotion          float64           `json:"Promotion"`
	Quantity           int               `json:"Quantity"`
	Sold               int               `json:"sold"`
	Category           string            `json:"Category"`
	Brand              string            `json:"Brand"`
	Sizes              []SizeVariant     `json:"sizes"`
	Colors             []ColorVariant    `json:"colors"`
	Media              []Media           `json:"media"`
	FicheTech          []TechSpec        `json:"ficheTech"`
	Attributes         map[string]string `json:"attributes"`
	Subs               []uuid.UUID       `json:"subs"`
	IsProductOfTheYear bool              `json:"isProductOfTheYear"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// ProductTitle is the lightweight projection used by storefront pickers
type ProductTitle struct {
	ID     uuid.UUID      `json:"_id"`
	Title  string         `json:"Title"`
	Slug   string         `json:"slug"`
	Sizes  []SizeVariant  `json:"sizes"`
	Colors []ColorVariant `json:"colors"`
}

// EnsureCollections replaces nil slices and maps so they serialise as empty JSON values
func (p *Product) EnsureCollections() {
	if p.Sizes == nil {
		p.Sizes = []SizeVariant{}
	}
	if p.Colors == nil {
		p.Colors = []ColorVariant{}
	}
	if p.Media == nil {
		p.Media = []Media{}
	}
	if p.FicheTech == nil {
		p.FicheTech = []TechSpec{}
	}
	if p.Attributes == nil {
		p.Attributes = map[string]string{}
	}
	if p.Subs == nil {
		p.Subs = []uuid.UUID{}
	}
}
