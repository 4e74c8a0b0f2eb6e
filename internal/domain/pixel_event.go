package domain

import (
	"time"

	"github.com/google/uuid"
)

// PixelEventStatus records why an event was kept. Delivered events are never stored.
type PixelEventStatus string

const (
	PixelEventPending PixelEventStatus = "pending"
	PixelEventFailed  PixelEventStatus = "failed"
)

// UserData is the advanced-matching block of a conversion event.
// Identity fields hold SHA-256 digests and are omitted when unknown.
type UserData struct {
	Email           string `json:"em,omitempty"`
	Phone           string `json:"ph,omitempty"`
	FirstName       string `json:"fn,omitempty"`
	LastName        string `json:"ln,omitempty"`
	ClientIPAddress string `json:"client_ip_address,omitempty"`
	ClientUserAgent string `json:"client_user_agent"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	Zip             string `json:"zip,omitempty"`
	Country         string `json:"country,omitempty"`
}

// Content is one product line in custom_data.contents
type Content struct {
	ID        string  `json:"id"`
	Quantity  int     `json:"quantity"`
	ItemPrice float64 `json:"item_price"`
	Category  string  `json:"category"`
}

// CustomData carries the monetary part of a conversion event
type CustomData struct {
	Currency string    `json:"currency"`
	Value    float64   `json:"value"`
	Contents []Content `json:"contents"`
}

// ConversionEvent is the envelope relayed to the ad platform
type ConversionEvent struct {
	EventName      string     `json:"event_name"`
	EventTime      int64      `json:"event_time"`
	EventID        string     `json:"event_id,omitempty"`
	EventSourceURL string     `json:"event_source_url"`
	ActionSource   string     `json:"action_source"`
	UserData       UserData   `json:"user_data"`
	CustomData     CustomData `json:"custom_data"`
}

// PixelEvent is the audit copy of a conversion event that could not be delivered
type PixelEvent struct {
	ID             uuid.UUID        `json:"_id"`
	EventName      string           `json:"event_name"`
	EventTime      int64            `json:"event_time"`
	EventID        string           `json:"event_id,omitempty"`
	EventSourceURL string           `json:"event_source_url"`
	UserData       UserData         `json:"user_data"`
	CustomData     CustomData       `json:"custom_data"`
	Status         PixelEventStatus `json:"status"`
	Response       string           `json:"response"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// NewFailedPixelEvent snapshots ev with the failure text returned by the relay
func NewFailedPixelEvent(ev ConversionEvent, response string) *PixelEvent {
	return &PixelEvent{
		ID:             uuid.New(),
		EventName:      ev.EventName,
		EventTime:      ev.EventTime,
		EventID:        ev.EventID,
		EventSourceURL: ev.EventSourceURL,
		UserData:       ev.UserData,
		CustomData:     ev.CustomData,
		Status:         PixelEventFailed,
		Response:       response,
		CreatedAt:      time.Now(),
	}
}
