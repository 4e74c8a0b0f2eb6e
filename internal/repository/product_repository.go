package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

const productOfTheYearSlot = "product_of_the_year"

const productColumns = `
	p.id, p.title, p.slug, p.description, p.price, p.promotion, p.quantity, p.sold,
	p.category, p.brand, p.sizes, p.colors, p.media, p.fiche_tech, p.attributes, p.subs,
	(f.product_id IS NOT NULL) AS is_product_of_the_year, p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	LEFT JOIN featured_products f ON f.product_id = p.id AND f.slot = '` + productOfTheYearSlot + `'`

var sortColumns = map[catalog.SortField]string{
	catalog.SortBySold:      "p.sold",
	catalog.SortByPrice:     "p.price",
	catalog.SortByCreatedAt: "p.created_at",
}

var filterColumns = map[string]string{
	"category": "p.category",
	"brand":    "p.brand",
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	DeleteBySlug(ctx context.Context, slug string) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, criteria catalog.Criteria) ([]*domain.Product, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	ListBySub(ctx context.Context, subID uuid.UUID) ([]*domain.Product, error)
	NewArrivals(ctx context.Context, category string, limit int) ([]*domain.Product, error)
	BestSellers(ctx context.Context, limit int) ([]*domain.Product, error)
	Titles(ctx context.Context) ([]*domain.ProductTitle, error)
	SetProductOfTheYear(ctx context.Context, slug string) (*domain.Product, error)
	ProductOfTheYear(ctx context.Context) (*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

type productDocuments struct {
	sizes, colors, media, ficheTech, attributes, subs []byte
}

func encodeProductDocuments(p *domain.Product) (*productDocuments, error) {
	p.EnsureCollections()
	docs := &productDocuments{}
	var err error
	if docs.sizes, err = encodeJSON(p.Sizes); err != nil {
		return nil, err
	}
	if docs.colors, err = encodeJSON(p.Colors); err != nil {
		return nil, err
	}
	if docs.media, err = encodeJSON(p.Media); err != nil {
		return nil, err
	}
	if docs.ficheTech, err = encodeJSON(p.FicheTech); err != nil {
		return nil, err
	}
	if docs.attributes, err = encodeJSON(p.Attributes); err != nil {
		return nil, err
	}
	if docs.subs, err = encodeJSON(p.Subs); err != nil {
		return nil, err
	}
	return docs, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var docs productDocuments
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Promotion,
		&p.Quantity,
		&p.Sold,
		&p.Category,
		&p.Brand,
		&docs.sizes,
		&docs.colors,
		&docs.media,
		&docs.ficheTech,
		&docs.attributes,
		&docs.subs,
		&p.IsProductOfTheYear,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, d := range []struct {
		raw   []byte
		dst   interface{}
		field string
	}{
		{docs.sizes, &p.Sizes, "sizes"},
		{docs.colors, &p.Colors, "colors"},
		{docs.media, &p.Media, "media"},
		{docs.ficheTech, &p.FicheTech, "fiche_tech"},
		{docs.attributes, &p.Attributes, "attributes"},
		{docs.subs, &p.Subs, "subs"},
	} {
		if err := decodeJSON(d.raw, d.dst, d.field); err != nil {
			return nil, err
		}
	}
	p.EnsureCollections()

	return p, nil
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Create inserts a new product. A duplicate slug yields ErrSlugTaken.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	docs, err := encodeProductDocuments(product)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, title, slug, description, price, promotion, quantity, sold,
			category, brand, sizes, colors, media, fiche_tech, attributes, subs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Slug,
		product.Description,
		product.Price,
		product.Promotion,
		product.Quantity,
		product.Sold,
		product.Category,
		product.Brand,
		docs.sizes,
		docs.colors,
		docs.media,
		docs.ficheTech,
		docs.attributes,
		docs.subs,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create product")
	}

	return nil
}

// Update replaces every stored field of the product identified by product.ID
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	docs, err := encodeProductDocuments(product)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET title = $2, slug = $3, description = $4, price = $5, promotion = $6, quantity = $7,
		    sold = $8, category = $9, brand = $10, sizes = $11, colors = $12, media = $13,
		    fiche_tech = $14, attributes = $15, subs = $16
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Slug,
		product.Description,
		product.Price,
		product.Promotion,
		product.Quantity,
		product.Sold,
		product.Category,
		product.Brand,
		docs.sizes,
		docs.colors,
		docs.media,
		docs.ficheTech,
		docs.attributes,
		docs.subs,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return mapWriteError(err, "update product")
	}

	return nil
}

// DeleteBySlug removes a product and returns what was stored
func (r *productRepository) DeleteBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := r.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrProductNotFound
	}

	return product, nil
}

// FindBySlug retrieves a product by slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.slug = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// productWhere renders the filter part of criteria as a parameterized WHERE clause.
// Attribute keys are bound as parameters, never spliced into the SQL text.
func productWhere(c catalog.Criteria) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range c.Filters {
		switch f.Field.Kind {
		case catalog.FieldColumn:
			col, ok := filterColumns[f.Field.Name]
			if !ok {
				continue
			}
			conds = append(conds, fmt.Sprintf("%s = ANY(%s)", col, next(f.Values)))
		case catalog.FieldColorValue:
			conds = append(conds, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM jsonb_array_elements(p.colors) c WHERE c->>'value' = ANY(%s))", next(f.Values)))
		case catalog.FieldSizeValue:
			conds = append(conds, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM jsonb_array_elements(p.sizes) s WHERE s->>'size' = ANY(%s))", next(f.Values)))
		case catalog.FieldAttribute:
			key := next(f.Field.Name)
			conds = append(conds, fmt.Sprintf("p.attributes->>%s::text = ANY(%s)", key, next(f.Values)))
		}
	}

	if c.Price != nil {
		conds = append(conds, fmt.Sprintf("p.price BETWEEN %s AND %s", next(c.Price.Min), next(c.Price.Max)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrder(s catalog.Sort) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = "p.created_at"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, p.id ASC", col, dir)
}

// List returns one page of products matching criteria and the total match count
func (r *productRepository) List(ctx context.Context, criteria catalog.Criteria) ([]*domain.Product, int, error) {
	where, args := productWhere(criteria)

	var total int
	countQuery := `SELECT COUNT(*) FROM products p` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s %s %s %s LIMIT $%d OFFSET $%d`,
		productColumns, productFrom, where, productOrder(criteria.Sort), len(args)+1, len(args)+2)
	args = append(args, criteria.PageSize, criteria.Offset())

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func likePattern(q string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + escaped + "%"
}

// Search matches title, description or slug case-insensitively, newest first
func (r *productRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	if strings.TrimSpace(query) == "" {
		return r.List(ctx, catalog.Criteria{
			Page:     page,
			PageSize: pageSize,
			Sort:     catalog.Sort{Field: catalog.SortByCreatedAt, Desc: true},
		})
	}

	searchPattern := likePattern(query)
	where := ` WHERE p.title ILIKE $1 OR p.description ILIKE $1 OR p.slug ILIKE $1`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p`+where, searchPattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	searchQuery := `SELECT ` + productColumns + productFrom + where +
		` ORDER BY p.created_at DESC, p.id ASC LIMIT $2 OFFSET $3`

	products, err := r.queryProducts(ctx, searchQuery, searchPattern, pageSize, page*pageSize)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// ListByCategory returns every product whose category equals category, ignoring case
func (r *productRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom +
		` WHERE LOWER(p.category) = LOWER($1) ORDER BY p.created_at DESC, p.id ASC`
	return r.queryProducts(ctx, query, category)
}

// ListBySub returns products tagged with the given subcategory
func (r *productRepository) ListBySub(ctx context.Context, subID uuid.UUID) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom +
		` WHERE p.subs @> jsonb_build_array($1::text) ORDER BY p.created_at DESC, p.id ASC`
	return r.queryProducts(ctx, query, subID.String())
}

// NewArrivals returns the most recently updated products. An empty category means all of them.
func (r *productRepository) NewArrivals(ctx context.Context, category string, limit int) ([]*domain.Product, error) {
	if category == "" {
		query := `SELECT ` + productColumns + productFrom +
			` ORDER BY p.updated_at DESC, p.id ASC LIMIT $1`
		return r.queryProducts(ctx, query, limit)
	}

	query := `SELECT ` + productColumns + productFrom +
		` WHERE p.category = $1 ORDER BY p.updated_at DESC, p.id ASC LIMIT $2`
	return r.queryProducts(ctx, query, category, limit)
}

// BestSellers returns the products with the highest sold count
func (r *productRepository) BestSellers(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom +
		` ORDER BY p.sold DESC, p.id ASC LIMIT $1`
	return r.queryProducts(ctx, query, limit)
}

// Titles returns the picker projection of every product
func (r *productRepository) Titles(ctx context.Context) ([]*domain.ProductTitle, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, slug, sizes, colors FROM products ORDER BY title ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list product titles: %w", err)
	}
	defer rows.Close()

	titles := []*domain.ProductTitle{}
	for rows.Next() {
		t := &domain.ProductTitle{}
		var sizes, colors []byte
		if err := rows.Scan(&t.ID, &t.Title, &t.Slug, &sizes, &colors); err != nil {
			return nil, fmt.Errorf("failed to scan product title: %w", err)
		}
		if err := decodeJSON(sizes, &t.Sizes, "sizes"); err != nil {
			return nil, err
		}
		if err := decodeJSON(colors, &t.Colors, "colors"); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product titles: %w", err)
	}

	return titles, nil
}

// SetProductOfTheYear points the single featured slot at the product with slug.
// The previous holder loses the flag in the same statement.
func (r *productRepository) SetProductOfTheYear(ctx context.Context, slug string) (*domain.Product, error) {
	query := `
		INSERT INTO featured_products (slot, product_id, updated_at)
		SELECT $1::varchar, id, NOW() FROM products WHERE slug = $2
		ON CONFLICT (slot) DO UPDATE SET product_id = EXCLUDED.product_id, updated_at = NOW()
	`

	result, err := r.db.ExecContext(ctx, query, productOfTheYearSlot, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to set product of the year: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrProductNotFound
	}

	return r.FindBySlug(ctx, slug)
}

// ProductOfTheYear returns the current holder of the featured slot
func (r *productRepository) ProductOfTheYear(ctx context.Context) (*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE f.product_id IS NOT NULL LIMIT 1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product of the year: %w", err)
	}

	return product, nil
}
