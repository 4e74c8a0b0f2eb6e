package catalog

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, body string) Criteria {
	t.Helper()
	req, err := ParseListRequest([]byte(body))
	require.NoError(t, err)
	return Build(req)
}

func TestBuild_Defaults(t *testing.T) {
	c := mustBuild(t, `{}`)

	assert.Equal(t, 0, c.Page)
	assert.Equal(t, 12, c.PageSize)
	assert.Equal(t, Sort{Field: SortByCreatedAt, Desc: true}, c.Sort)
	assert.Empty(t, c.Filters)
	assert.Nil(t, c.Price)

	empty, err := ParseListRequest(nil)
	require.NoError(t, err)
	assert.Equal(t, c, Build(empty))
}

func TestBuild_Pagination(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		page     int
		pageSize int
	}{
		{"numbers", `{"page":2,"itemsPerPage":5}`, 2, 5},
		{"numeric strings", `{"page":"3","itemsPerPage":"8"}`, 3, 8},
		{"negative page clamps", `{"page":-4}`, 0, 12},
		{"zero size falls back", `{"itemsPerPage":0}`, 0, 12},
		{"garbage falls back", `{"page":"abc","itemsPerPage":"x"}`, 0, 12},
		{"null falls back", `{"page":null,"itemsPerPage":null}`, 0, 12},
		{"fraction truncates", `{"page":"1.9","itemsPerPage":4.2}`, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustBuild(t, tt.body)
			assert.Equal(t, tt.page, c.Page)
			assert.Equal(t, tt.pageSize, c.PageSize)
			assert.Equal(t, tt.page*tt.pageSize, c.Offset())
		})
	}
}

func TestBuild_Sort(t *testing.T) {
	tests := map[string]Sort{
		"best":               {Field: SortBySold, Desc: true},
		"Price: Low to High": {Field: SortByPrice},
		"Price: High to Low": {Field: SortByPrice, Desc: true},
		"new":                {Field: SortByCreatedAt, Desc: true},
		"name; DROP TABLE":   {Field: SortByCreatedAt, Desc: true},
	}

	for selector, want := range tests {
		assert.Equal(t, want, ResolveSort(selector), selector)
	}
}

func TestResolveFieldSort(t *testing.T) {
	assert.Equal(t, Sort{Field: SortByCreatedAt, Desc: true}, ResolveFieldSort("-createdAt"))
	assert.Equal(t, Sort{Field: SortByPrice}, ResolveFieldSort("price"))
	assert.Equal(t, Sort{Field: SortByTitle, Desc: true}, ResolveFieldSort("-title"))
	assert.Equal(t, Sort{Field: SortByCreatedAt, Desc: true}, ResolveFieldSort("password"))
	assert.Equal(t, Sort{Field: SortByCreatedAt, Desc: true}, ResolveFieldSort(""))
}

func TestBuild_Filters(t *testing.T) {
	c := mustBuild(t, `{
		"filters": {
			"category": ["Dresses", "Shoes"],
			"color": ["red"],
			"brand": [],
			"size": ["M", 42],
			"material": ["cotton"],
			"priceRange": [10, "50"]
		}
	}`)

	require.Len(t, c.Filters, 4)
	assert.Equal(t, InFilter{Field: Field{Kind: FieldColumn, Name: "category"}, Values: []string{"Dresses", "Shoes"}}, c.Filters[0])
	assert.Equal(t, InFilter{Field: Field{Kind: FieldColorValue, Name: "colors"}, Values: []string{"red"}}, c.Filters[1])
	assert.Equal(t, InFilter{Field: Field{Kind: FieldAttribute, Name: "material"}, Values: []string{"cotton"}}, c.Filters[2])
	assert.Equal(t, InFilter{Field: Field{Kind: FieldSizeValue, Name: "sizes"}, Values: []string{"M", "42"}}, c.Filters[3])

	require.NotNil(t, c.Price)
	assert.Equal(t, PriceRange{Min: 10, Max: 50}, *c.Price)
}

func TestBuild_SelectedWrapper(t *testing.T) {
	c := mustBuild(t, `{"filters":{"selected":{"brand":["Skands"]}}}`)

	require.Len(t, c.Filters, 1)
	assert.Equal(t, "brand", c.Filters[0].Field.Name)
	assert.Equal(t, []string{"Skands"}, c.Filters[0].Values)
}

func TestBuild_PriceRangeNeedsTwoNumbers(t *testing.T) {
	for _, body := range []string{
		`{"filters":{"priceRange":[10]}}`,
		`{"filters":{"priceRange":[10,20,30]}}`,
		`{"filters":{"priceRange":["cheap","dear"]}}`,
		`{"filters":{"priceRange":"10-20"}}`,
	} {
		c := mustBuild(t, body)
		assert.Nil(t, c.Price, body)
		assert.Empty(t, c.Filters, body)
	}
}

func TestParseListRequest_Malformed(t *testing.T) {
	_, err := ParseListRequest([]byte(`{"page":`))
	assert.Error(t, err)
}

func TestParseSearchRequest(t *testing.T) {
	req, err := ParseSearchRequest([]byte(`{"query":"robe","page":"1","itemsPerPage":6}`))
	require.NoError(t, err)

	page, size := Pagination(req.Page, req.ItemsPerPage)
	assert.Equal(t, "robe", req.Query)
	assert.Equal(t, 1, page)
	assert.Equal(t, 6, size)
}

// Feature: storefront-catalog, Property 2: Page count equals ceil(total/pageSize)
// Validates: Requirements C.2
func TestProperty_TotalPagesIsCeiling(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total pages is the ceiling of total over page size", prop.ForAll(
		func(total, size int) bool {
			want := int(math.Ceil(float64(total) / float64(size)))
			return TotalPages(total, size) == want
		},
		gen.IntRange(0, 10000),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront-catalog, Property 3: Successive pages partition the result set
// Validates: Requirements C.2
func TestProperty_PagesPartitionResults(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("offsets of successive pages cover every record exactly once", prop.ForAll(
		func(total, size int) bool {
			seen := make([]int, total)
			pages := TotalPages(total, size)
			for p := 0; p < pages; p++ {
				c := Criteria{Page: p, PageSize: size}
				for i := c.Offset(); i < c.Offset()+size && i < total; i++ {
					seen[i]++
				}
			}
			for _, n := range seen {
				if n != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 300),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewPage(t *testing.T) {
	p := NewPage[string](nil, 25, Criteria{Page: 1, PageSize: 12})

	assert.NotNil(t, p.Items)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 1, p.CurrentPage)
}

func TestLooseFloat(t *testing.T) {
	var v struct {
		A, B, C, D LooseFloat
	}
	require.NoError(t, json.Unmarshal([]byte(`{"A":19.99,"B":" 7.5 ","C":"abc","D":null}`), &v))

	assert.Equal(t, LooseFloat{Value: 19.99, Valid: true}, v.A)
	assert.Equal(t, LooseFloat{Value: 7.5, Valid: true}, v.B)
	assert.False(t, v.C.Valid)
	assert.False(t, v.D.Valid)
}
