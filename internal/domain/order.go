package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of fulfilment states. Transitions are not enforced.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how the customer settles the order
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

// LineItemType tells single products and bundles apart
type LineItemType string

const (
	LineItemSingle LineItemType = "single"
	LineItemPack   LineItemType = "pack"
)

// Customer is the delivery contact embedded in an order
type Customer struct {
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Region   string `json:"region" validate:"required"`
}

// UnmarshalJSON also accepts the storefront's legacy "gouvernorat" key for Region
func (c *Customer) UnmarshalJSON(data []byte) error {
	type plain Customer
	var raw struct {
		plain
		Gouvernorat string `json:"gouvernorat"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Customer(raw.plain)
	if c.Region == "" {
		c.Region = raw.Gouvernorat
	}
	return nil
}

// PackSelection is one constituent of a pack line item, priced as the client saw it
type PackSelection struct {
	ProductID         string  `json:"productId"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Quantity          int     `json:"quantity"`
	SelectedSize      *string `json:"selectedSize"`
	SelectedSizePrice float64 `json:"selectedSizePrice"`
	SelectedColor     *string `json:"selectedColor"`
}

// LineItem is one entry of an order
type LineItem struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	Quantity      int             `json:"quantity"`
	Image         string          `json:"image,omitempty"`
	SelectedSize  *string         `json:"selectedSize"`
	SelectedColor *string         `json:"selectedColor"`
	Type          LineItemType    `json:"type"`
	Products      []PackSelection `json:"products"`
}

// Order is a submitted cart with its customer and totals snapshot
type Order struct {
	ID            uuid.UUID     `json:"_id"`
	Customer      Customer      `json:"customer"`
	Items         []LineItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Shipping      float64       `json:"shipping"`
	Subtotal      float64       `json:"subtotal"`
	Total         float64       `json:"total"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ItemCount is the number of units across the order, counting pack contents individually
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		if item.Type == LineItemPack {
			for _, p := range item.Products {
				count += p.Quantity * item.Quantity
			}
			continue
		}
		count += item.Quantity
	}
	return count
}
