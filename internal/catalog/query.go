// Package catalog turns loosely typed storefront listing requests into
// validated, store-agnostic query criteria.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 0
	DefaultPageSize = 12
)

// Sort selectors understood by the storefront
const (
	SortBest          = "best"
	SortPriceLowHigh  = "Price: Low to High"
	SortPriceHighLow  = "Price: High to Low"
	SortNewest        = "new"
	priceRangeFilter  = "priceRange"
	selectedFilterKey = "selected"
)

// SortField is a whitelisted sortable product property
type SortField string

const (
	SortBySold      SortField = "sold"
	SortByPrice     SortField = "price"
	SortByCreatedAt SortField = "created_at"
	SortByTitle     SortField = "title"
)

// Sort is the resolved ordering. Stores must break ties on the record id.
type Sort struct {
	Field SortField
	Desc  bool
}

// FieldKind says where a filter value lives on a product
type FieldKind int

const (
	// FieldColumn is a scalar product property
	FieldColumn FieldKind = iota
	// FieldColorValue matches any element of colors[].value
	FieldColorValue
	// FieldSizeValue matches any element of sizes[].size
	FieldSizeValue
	// FieldAttribute matches a key of the free-form attributes document
	FieldAttribute
)

// Field addresses a filterable product property
type Field struct {
	Kind FieldKind
	Name string
}

// InFilter is an "is one of" constraint
type InFilter struct {
	Field  Field
	Values []string
}

// PriceRange is an inclusive price constraint
type PriceRange struct {
	Min float64
	Max float64
}

// Criteria is the validated form of a listing request
type Criteria struct {
	Page     int
	PageSize int
	Sort     Sort
	Filters  []InFilter
	Price    *PriceRange
}

// Offset is the number of matching records skipped before the page starts
func (c Criteria) Offset() int {
	return c.Page * c.PageSize
}

var knownFilters = map[string]Field{
	"category": {Kind: FieldColumn, Name: "category"},
	"brand":    {Kind: FieldColumn, Name: "brand"},
	"color":    {Kind: FieldColorValue, Name: "colors"},
	"size":     {Kind: FieldSizeValue, Name: "sizes"},
}

// LooseInt accepts a JSON number or a numeric string. Anything else leaves
// Valid false so callers fall back to their default.
type LooseInt struct {
	Value int
	Valid bool
}

// UnmarshalJSON never fails; unusable input simply stays invalid
func (l *LooseInt) UnmarshalJSON(data []byte) error {
	*l = LooseInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		*l = LooseInt{Value: n, Valid: true}
		return nil
	}
	// leading integer part, so "2.7" reads as 2
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*l = LooseInt{Value: int(f), Valid: true}
	}
	return nil
}

// LooseFloat is the float counterpart of LooseInt
type LooseFloat struct {
	Value float64
	Valid bool
}

func (l *LooseFloat) UnmarshalJSON(data []byte) error {
	*l = LooseFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*l = LooseFloat{Value: f, Valid: true}
	}
	return nil
}

// ListRequest is the body of a catalog listing call
type ListRequest struct {
	Page         LooseInt                   `json:"page"`
	ItemsPerPage LooseInt                   `json:"itemsPerPage"`
	Sort         string                     `json:"sort"`
	Filters      map[string]json.RawMessage `json:"filters"`
}

// SearchRequest is the body of a free-text catalog search
type SearchRequest struct {
	Query        string   `json:"query"`
	Page         LooseInt `json:"page"`
	ItemsPerPage LooseInt `json:"itemsPerPage"`
}

// ParseListRequest decodes a listing body. An empty body is a request for the first default page.
func ParseListRequest(body []byte) (ListRequest, error) {
	var req ListRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid listing request: %w", err)
	}
	return req, nil
}

// ParseSearchRequest decodes a search body
func ParseSearchRequest(body []byte) (SearchRequest, error) {
	var req SearchRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid search request: %w", err)
	}
	return req, nil
}

// Pagination resolves page and page size with their bounds applied
func Pagination(page, size LooseInt) (int, int) {
	p := DefaultPage
	if page.Valid && page.Value >= 0 {
		p = page.Value
	}
	s := DefaultPageSize
	if size.Valid && size.Value >= 1 {
		s = size.Value
	}
	return p, s
}

// ResolveSort maps a storefront sort selector onto the whitelist
func ResolveSort(selector string) Sort {
	switch selector {
	case SortBest:
		return Sort{Field: SortBySold, Desc: true}
	case SortPriceLowHigh:
		return Sort{Field: SortByPrice}
	case SortPriceHighLow:
		return Sort{Field: SortByPrice, Desc: true}
	default:
		return Sort{Field: SortByCreatedAt, Desc: true}
	}
}

var fieldSelectors = map[string]SortField{
	"createdAt": SortByCreatedAt,
	"price":     SortByPrice,
	"title":     SortByTitle,
	"sold":      SortBySold,
}

// ResolveFieldSort reads a "field" or "-field" selector. Unknown fields sort newest first.
func ResolveFieldSort(selector string) Sort {
	selector = strings.TrimSpace(selector)
	desc := strings.HasPrefix(selector, "-")
	field, ok := fieldSelectors[strings.TrimPrefix(selector, "-")]
	if !ok {
		return Sort{Field: SortByCreatedAt, Desc: true}
	}
	return Sort{Field: field, Desc: desc}
}

// Build validates a listing request into Criteria
func Build(req ListRequest) Criteria {
	page, size := Pagination(req.Page, req.ItemsPerPage)
	c := Criteria{
		Page:     page,
		PageSize: size,
		Sort:     ResolveSort(req.Sort),
	}

	applied := req.Filters
	if raw, ok := req.Filters[selectedFilterKey]; ok {
		var selected map[string]json.RawMessage
		if err := json.Unmarshal(raw, &selected); err == nil && selected != nil {
			applied = selected
		}
	}

	keys := make([]string, 0, len(applied))
	for k := range applied {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := scalarValues(applied[key])
		if len(values) == 0 {
			continue
		}

		if key == priceRangeFilter {
			if r, ok := priceRange(values); ok {
				c.Price = r
			}
			continue
		}

		field, ok := knownFilters[key]
		if !ok {
			field = Field{Kind: FieldAttribute, Name: key}
		}
		c.Filters = append(c.Filters, InFilter{Field: field, Values: values})
	}

	return c
}

// scalarValues returns the string form of every scalar element of a JSON array.
// Non-arrays and empty arrays yield nothing.
func scalarValues(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		var v interface{}
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		switch t := v.(type) {
		case string:
			values = append(values, t)
		case float64:
			values = append(values, strconv.FormatFloat(t, 'f', -1, 64))
		case bool:
			values = append(values, strconv.FormatBool(t))
		}
	}
	return values
}

func priceRange(values []string) (*PriceRange, bool) {
	if len(values) != 2 {
		return nil, false
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
	if err != nil {
		return nil, false
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(values[1]), 64)
	if err != nil {
		return nil, false
	}
	return &PriceRange{Min: lo, Max: hi}, true
}

// Page is one slice of a paginated result
type Page[T any] struct {
	Items       []T
	Total       int
	TotalPages  int
	CurrentPage int
}

// NewPage wraps a page of items with its totals
func NewPage[T any](items []T, total int, c Criteria) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Total:       total,
		TotalPages:  TotalPages(total, c.PageSize),
		CurrentPage: c.Page,
	}
}

// TotalPages is ceil(total/size)
func TotalPages(total, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
