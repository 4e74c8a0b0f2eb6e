package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"
)

// OrderRequest is a submitted cart as the storefront sends it. Items may be
// a JSON array or a string holding one, as multipart forms deliver it.
type OrderRequest struct {
	Customer      *domain.Customer   `json:"customer"`
	Items         json.RawMessage    `json:"items"`
	PaymentMethod string             `json:"paymentMethod"`
	Shipping      catalog.LooseFloat `json:"shipping"`
	Subtotal      catalog.LooseFloat `json:"subtotal"`
	Total         catalog.LooseFloat `json:"total"`
}

type rawPackSelection struct {
	ProductID         string             `json:"productId"`
	Name              string             `json:"name"`
	Price             catalog.LooseFloat `json:"price"`
	Quantity          catalog.LooseInt   `json:"quantity"`
	SelectedSize      string             `json:"selectedSize"`
	SelectedSizePrice catalog.LooseFloat `json:"selectedSizePrice"`
	SelectedColor     string             `json:"selectedColor"`
}

type rawLineItem struct {
	ProductID     string             `json:"productId"`
	Name          string             `json:"name"`
	Price         catalog.LooseFloat `json:"price"`
	Quantity      catalog.LooseInt   `json:"quantity"`
	Image         string             `json:"image"`
	SelectedSize  string             `json:"selectedSize"`
	SelectedColor string             `json:"selectedColor"`
	Type          string             `json:"type"`
	Products      []rawPackSelection `json:"products"`
}

// NormalizeOrder turns a submitted cart into the canonical order shape.
// Client prices, pack contents included, are kept as sent.
func NormalizeOrder(req OrderRequest) (*domain.Order, error) {
	items, err := decodeItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.Customer == nil || len(items) == 0 {
		return nil, invalidf("Missing required fields")
	}

	customer := domain.Customer{
		FullName: plainText(req.Customer.FullName),
		Phone:    plainText(req.Customer.Phone),
		Address:  plainText(req.Customer.Address),
		Region:   plainText(req.Customer.Region),
	}
	if err := validateStruct(customer); err != nil {
		return nil, err
	}

	payment := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	switch payment {
	case "":
		payment = domain.PaymentMethodCOD
	case domain.PaymentMethodCOD, domain.PaymentMethodCard:
	default:
		return nil, invalidf("unknown payment method %q", req.PaymentMethod)
	}

	order := &domain.Order{
		Customer:      customer,
		Items:         make([]domain.LineItem, 0, len(items)),
		PaymentMethod: payment,
		Shipping:      req.Shipping.Value,
		Subtotal:      req.Subtotal.Value,
		Total:         req.Total.Value,
		Status:        domain.OrderStatusPending,
	}

	for i, raw := range items {
		item, err := normalizeItem(i, raw)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	return order, nil
}

func decodeItems(raw json.RawMessage) ([]rawLineItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidf("Invalid items format")
		}
		raw = []byte(s)
	}

	var items []rawLineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalidf("Invalid items format")
	}
	return items, nil
}

func normalizeItem(i int, raw rawLineItem) (domain.LineItem, error) {
	if strings.TrimSpace(raw.ProductID) == "" || strings.TrimSpace(raw.Name) == "" || !raw.Price.Valid {
		return domain.LineItem{}, invalidf("items[%d]: productId, name and price are required", i)
	}

	item := domain.LineItem{
		ProductID:     raw.ProductID,
		Name:          plainText(raw.Name),
		Price:         raw.Price.Value,
		Quantity:      quantityOrOne(raw.Quantity),
		Image:         raw.Image,
		SelectedSize:  optional(raw.SelectedSize),
		SelectedColor: optional(raw.SelectedColor),
		Type:          domain.LineItemSingle,
		Products:      []domain.PackSelection{},
	}

	switch domain.LineItemType(raw.Type) {
	case "", domain.LineItemSingle:
	case domain.LineItemPack:
		if len(raw.Products) == 0 {
			return domain.LineItem{}, invalidf("items[%d]: a pack needs its products", i)
		}
		item.Type = domain.LineItemPack
		for _, p := range raw.Products {
			item.Products = append(item.Products, domain.PackSelection{
				ProductID:         p.ProductID,
				Name:              plainText(p.Name),
				Price:             p.Price.Value,
				Quantity:          quantityOrOne(p.Quantity),
				SelectedSize:      optional(p.SelectedSize),
				SelectedSizePrice: p.SelectedSizePrice.Value,
				SelectedColor:     optional(p.SelectedColor),
			})
		}
	default:
		return domain.LineItem{}, invalidf("items[%d]: unknown type %q", i, raw.Type)
	}

	return item, nil
}

func quantityOrOne(q catalog.LooseInt) int {
	if !q.Valid || q.Value < 1 {
		return 1
	}
	return q.Value
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
