package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(title string) *domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Product{
		ID:          uuid.New(),
		Title:       title,
		Slug:        domain.Slugify(title) + "-" + uuid.NewString()[:8],
		Description: "A " + title,
		Price:       20,
		Category:    "Dresses",
		Brand:       "Skands",
		Sizes:       []domain.SizeVariant{{Size: "M", Price: 5}},
		Colors:      []domain.ColorVariant{{ID: uuid.New(), Value: "red"}},
		Media:       []domain.Media{{ID: uuid.New(), Src: "/uploads/media/1-a.jpg", Type: domain.MediaTypeImage, Alt: "a.jpg"}},
		FicheTech:   []domain.TechSpec{{Label: "Fabric", Value: "Cotton"}},
		Attributes:  map[string]string{"material": "cotton"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Feature: storefront-catalog, Property 4: Product creation preserves attributes
// Validates: Requirements C.3
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	requireDB(t)
	truncate(t, "products")

	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(title string, description string, price float64, quantity int, size string) bool {
			ctx := context.Background()

			product := newTestProduct(title)
			product.Description = description
			product.Price = price
			product.Quantity = quantity
			product.Sizes = []domain.SizeVariant{{Size: size, Price: price / 2}}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindBySlug(ctx, product.Slug)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.ID != product.ID || retrieved.Title != product.Title || retrieved.Description != product.Description {
				t.Logf("FAIL: identity mismatch. Expected %+v, got %+v", product, retrieved)
				return false
			}

			// Compare prices with small tolerance for decimal rounding
			if retrieved.Price < product.Price-0.01 || retrieved.Price > product.Price+0.01 {
				t.Logf("FAIL: Price mismatch. Expected %f, got %f", product.Price, retrieved.Price)
				return false
			}

			if retrieved.Quantity != product.Quantity {
				t.Logf("FAIL: Quantity mismatch. Expected %d, got %d", product.Quantity, retrieved.Quantity)
				return false
			}

			if len(retrieved.Sizes) != 1 || retrieved.Sizes[0] != product.Sizes[0] {
				t.Logf("FAIL: Sizes mismatch. Expected %v, got %v", product.Sizes, retrieved.Sizes)
				return false
			}

			if len(retrieved.Colors) != 1 || retrieved.Colors[0] != product.Colors[0] {
				t.Logf("FAIL: Colors mismatch. Expected %v, got %v", product.Colors, retrieved.Colors)
				return false
			}

			if retrieved.Attributes["material"] != "cotton" {
				t.Logf("FAIL: Attributes mismatch. Got %v", retrieved.Attributes)
				return false
			}

			if retrieved.IsProductOfTheYear {
				t.Logf("FAIL: new product should not be product of the year")
				return false
			}

			_, _ = productRepo.DeleteBySlug(ctx, product.Slug)
			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,20}( [a-z]{2,10})?`),
		gen.AlphaString(),
		gen.Float64Range(0.01, 10000.0),
		gen.IntRange(0, 1000),
		gen.OneConstOf("S", "M", "L", "XL"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront-catalog, Property 5: Successive catalog pages partition the matching products
// Validates: Requirements C.2
func TestProperty_ListPagesPartitionResults(t *testing.T) {
	requireDB(t)
	truncate(t, "products")

	ctx := context.Background()
	productRepo := NewProductRepository(testDB)

	// equal created_at and sold values force the id tie-break
	created := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 23; i++ {
		p := newTestProduct(fmt.Sprintf("Partition %02d", i))
		p.CreatedAt = created
		p.Sold = i % 3
		p.Price = float64(i % 4)
		require.NoError(t, productRepo.Create(ctx, p))
	}

	properties := gopter.NewProperties(nil)

	properties.Property("every product appears on exactly one page", prop.ForAll(
		func(pageSize int, selector string) bool {
			sort := catalog.ResolveSort(selector)
			seen := map[uuid.UUID]int{}
			total := -1

			for page := 0; ; page++ {
				items, n, err := productRepo.List(ctx, catalog.Criteria{Page: page, PageSize: pageSize, Sort: sort})
				if err != nil {
					t.Logf("FAIL: list failed: %v", err)
					return false
				}
				total = n
				if len(items) == 0 {
					if page != catalog.TotalPages(total, pageSize) {
						t.Logf("FAIL: ran out of items on page %d, expected %d pages", page, catalog.TotalPages(total, pageSize))
						return false
					}
					break
				}
				for _, item := range items {
					seen[item.ID]++
				}
			}

			if len(seen) != total {
				t.Logf("FAIL: saw %d distinct products, total is %d", len(seen), total)
				return false
			}
			for id, count := range seen {
				if count != 1 {
					t.Logf("FAIL: product %s appeared %d times", id, count)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.OneConstOf(catalog.SortBest, catalog.SortPriceLowHigh, catalog.SortPriceHighLow, catalog.SortNewest),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_DuplicateSlug(t *testing.T) {
	requireDB(t)
	truncate(t, "products")

	ctx := context.Background()
	repo := NewProductRepository(testDB)

	first := newTestProduct("Robe Été")
	first.Slug = "robe-ete"
	require.NoError(t, repo.Create(ctx, first))

	second := newTestProduct("Robe Ete")
	second.Slug = "robe-ete"
	assert.ErrorIs(t, repo.Create(ctx, second), ErrSlugTaken)

	second.Slug = "robe-ete-2"
	require.NoError(t, repo.Create(ctx, second))

	second.Slug = "robe-ete"
	assert.ErrorIs(t, repo.Update(ctx, second), ErrSlugTaken)
}

func TestProductRepository_ProductOfTheYearHasSingleHolder(t *testing.T) {
	requireDB(t)
	truncate(t, "products")

	ctx := context.Background()
	repo := NewProductRepository(testDB)

	_, err := repo.ProductOfTheYear(ctx)
	assert.ErrorIs(t, err, ErrProductNotFound)

	a := newTestProduct("Holder A")
	b := newTestProduct("Holder B")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.SetProductOfTheYear(ctx, a.Slug)
	require.NoError(t, err)
	assert.True(t, got.IsProductOfTheYear)

	got, err = repo.SetProductOfTheYear(ctx, b.Slug)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	current, err := repo.ProductOfTheYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, current.ID)

	reloadedA, err := repo.FindBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.False(t, reloadedA.IsProductOfTheYear)

	var holders int
	require.NoError(t, testDB.QueryRow(`SELECT COUNT(*) FROM featured_products`).Scan(&holders))
	assert.Equal(t, 1, holders)

	_, err = repo.SetProductOfTheYear(ctx, "no-such-product")
	assert.ErrorIs(t, err, ErrProductNotFound)

	current, err = repo.ProductOfTheYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, current.ID)
}

func TestProductRepository_Filters(t *testing.T) {
	requireDB(t)
	truncate(t, "products")

	ctx := context.Background()
	repo := NewProductRepository(testDB)

	red := newTestProduct("Red Dress")
	red.Price = 30
	blue := newTestProduct("Blue Shirt")
	blue.Category = "Shirts"
	blue.Colors = []domain.ColorVariant{{ID: uuid.New(), Value: "blue"}}
	blue.Sizes = []domain.SizeVariant{{Size: "XL", Price: 0}}
	blue.Attributes = map[string]string{"material": "linen"}
	blue.Price = 80
	require.NoError(t, repo.Create(ctx, red))
	require.NoError(t, repo.Create(ctx, blue))

	list := func(body string) []*domain.Product {
		req, err := catalog.ParseListRequest([]byte(body))
		require.NoError(t, err)
		items, _, err := repo.List(ctx, catalog.Build(req))
		require.NoError(t, err)
		return items
	}

	tests := []struct {
		name string
		body string
		want *domain.Product
	}{
		{"category", `{"filters":{"category":["Shirts"]}}`, blue},
		{"color", `{"filters":{"color":["red"]}}`, red},
		{"size", `{"filters":{"size":["XL"]}}`, blue},
		{"attribute", `{"filters":{"material":["cotton"]}}`, red},
		{"price range", `{"filters":{"priceRange":[50,100]}}`, blue},
		{"selected wrapper", `{"filters":{"selected":{"brand":["Skands"],"color":["blue"]}}}`, blue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := list(tt.body)
			require.Len(t, items, 1)
			assert.Equal(t, tt.want.ID, items[0].ID)
		})
	}

	assert.Len(t, list(`{"filters":{"id":["anything"]}}`), 0)
	assert.Len(t, list(`{"filters":{"priceRange":[1]}}`), 2)
}

func TestProductRepository_SearchAndShortcuts(t *testing.T) {
	requireDB(t)
	truncate(t, "products")

	ctx := context.Background()
	repo := NewProductRepository(testDB)

	older := newTestProduct("Linen Shirt")
	older.Category = "Shirts"
	older.Sold = 50
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	newer := newTestProduct("Silk Dress 100%")
	newer.Sold = 5
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	found, total, err := repo.Search(ctx, "shirt", 0, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, older.ID, found[0].ID)

	found, total, err = repo.Search(ctx, "100%", 0, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, newer.ID, found[0].ID)

	_, total, err = repo.Search(ctx, "", 0, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	byCategory, err := repo.ListByCategory(ctx, "shirts")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, older.ID, byCategory[0].ID)

	best, err := repo.BestSellers(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, older.ID, best[0].ID)

	arrivals, err := repo.NewArrivals(ctx, "Shirts", 4)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)

	arrivals, err = repo.NewArrivals(ctx, "", 4)
	require.NoError(t, err)
	assert.Len(t, arrivals, 2)

	titles, err := repo.Titles(ctx)
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, "Linen Shirt", titles[0].Title)
	assert.Len(t, titles[0].Sizes, 1)
}

func TestProductRepository_ListBySubAndDelete(t *testing.T) {
	requireDB(t)
	truncate(t, "products")

	ctx := context.Background()
	repo := NewProductRepository(testDB)

	subID := uuid.New()
	tagged := newTestProduct("Tagged")
	tagged.Subs = []uuid.UUID{subID}
	require.NoError(t, repo.Create(ctx, tagged))
	require.NoError(t, repo.Create(ctx, newTestProduct("Untagged")))

	bySub, err := repo.ListBySub(ctx, subID)
	require.NoError(t, err)
	require.Len(t, bySub, 1)
	assert.Equal(t, tagged.ID, bySub[0].ID)

	deleted, err := repo.DeleteBySlug(ctx, tagged.Slug)
	require.NoError(t, err)
	assert.Equal(t, tagged.ID, deleted.ID)

	_, err = repo.DeleteBySlug(ctx, tagged.Slug)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
