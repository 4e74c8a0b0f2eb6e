package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrPackNotFound = errors.New("pack not found")
)

const packColumns = `id, title, slug, description, category, price, media, created_at, updated_at`

var packSortColumns = map[catalog.SortField]string{
	catalog.SortByPrice:     "price",
	catalog.SortByTitle:     "title",
	catalog.SortByCreatedAt: "created_at",
}

// PackRepository defines the interface for pack data access.
// Packs are always returned with their products populated in list order.
type PackRepository interface {
	Create(ctx context.Context, pack *domain.Pack) error
	Update(ctx context.Context, pack *domain.Pack) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindBySlug(ctx context.Context, slug string) (*domain.Pack, error)
	List(ctx context.Context) ([]*domain.Pack, error)
	ListByCategory(ctx context.Context, category string, page, pageSize int, sort catalog.Sort) ([]*domain.Pack, int, error)
}

type packRepository struct {
	db *sql.DB
}

// NewPackRepository creates a new instance of PackRepository
func NewPackRepository(db *sql.DB) PackRepository {
	return &packRepository{db: db}
}

// prefixScanner lets a product row carry leading columns of its own
type prefixScanner struct {
	row    rowScanner
	prefix []interface{}
}

func (s prefixScanner) Scan(dest ...interface{}) error {
	return s.row.Scan(append(s.prefix, dest...)...)
}

func scanPack(row rowScanner) (*domain.Pack, error) {
	pack := &domain.Pack{}
	var media []byte
	err := row.Scan(
		&pack.ID,
		&pack.Title,
		&pack.Slug,
		&pack.Description,
		&pack.Category,
		&pack.Price,
		&media,
		&pack.CreatedAt,
		&pack.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(media, &pack.Media, "media"); err != nil {
		return nil, err
	}
	if pack.Media == nil {
		pack.Media = []domain.Media{}
	}
	pack.Products = []*domain.Product{}
	return pack, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func replacePackProducts(ctx context.Context, tx *sql.Tx, packID uuid.UUID, productIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM pack_products WHERE pack_id = $1`, packID); err != nil {
		return fmt.Errorf("failed to clear pack products: %w", err)
	}
	if len(productIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO pack_products (pack_id, position, product_id)
		SELECT $1::uuid, t.ord - 1, t.pid::uuid
		FROM unnest($2::text[]) WITH ORDINALITY AS t(pid, ord)
	`
	if _, err := tx.ExecContext(ctx, query, packID, uuidStrings(productIDs)); err != nil {
		return mapWriteError(err, "link pack products")
	}
	return nil
}

// Create inserts a pack together with its ordered product list
func (r *packRepository) Create(ctx context.Context, pack *domain.Pack) error {
	media, err := encodeJSON(nonNilMedia(pack.Media))
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO packs (id, title, slug, description, category, price, media, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, query,
		pack.ID,
		pack.Title,
		pack.Slug,
		pack.Description,
		pack.Category,
		pack.Price,
		media,
		pack.CreatedAt,
		pack.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create pack")
	}

	if err := replacePackProducts(ctx, tx, pack.ID, pack.ProductIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pack: %w", err)
	}
	return nil
}

// Update stores every field of the pack and replaces its product list
func (r *packRepository) Update(ctx context.Context, pack *domain.Pack) error {
	media, err := encodeJSON(nonNilMedia(pack.Media))
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE packs
		SET title = $2, slug = $3, description = $4, category = $5, price = $6, media = $7
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		pack.ID,
		pack.Title,
		pack.Slug,
		pack.Description,
		pack.Category,
		pack.Price,
		media,
	).Scan(&pack.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPackNotFound
		}
		return mapWriteError(err, "update pack")
	}

	if err := replacePackProducts(ctx, tx, pack.ID, pack.ProductIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pack: %w", err)
	}
	return nil
}

// Delete removes a pack by ID
func (r *packRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM packs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pack: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrPackNotFound
	}

	return nil
}

// FindBySlug retrieves a pack by slug
func (r *packRepository) FindBySlug(ctx context.Context, slug string) (*domain.Pack, error) {
	pack, err := scanPack(r.db.QueryRowContext(ctx, `SELECT `+packColumns+` FROM packs WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackNotFound
		}
		return nil, fmt.Errorf("failed to find pack by slug: %w", err)
	}

	if err := r.populate(ctx, []*domain.Pack{pack}); err != nil {
		return nil, err
	}
	return pack, nil
}

// List retrieves every pack, newest first
func (r *packRepository) List(ctx context.Context) ([]*domain.Pack, error) {
	packs, err := r.queryPacks(ctx, `SELECT `+packColumns+` FROM packs ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	if err := r.populate(ctx, packs); err != nil {
		return nil, err
	}
	return packs, nil
}

// ListByCategory returns one page of packs in category and the category's pack count
func (r *packRepository) ListByCategory(ctx context.Context, category string, page, pageSize int, sort catalog.Sort) ([]*domain.Pack, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packs WHERE category = $1`, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count packs: %w", err)
	}

	col, ok := packSortColumns[sort.Field]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM packs WHERE category = $1 ORDER BY %s %s, id ASC LIMIT $2 OFFSET $3`,
		packColumns, col, dir)
	packs, err := r.queryPacks(ctx, query, category, pageSize, page*pageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := r.populate(ctx, packs); err != nil {
		return nil, 0, err
	}
	return packs, total, nil
}

func (r *packRepository) queryPacks(ctx context.Context, query string, args ...interface{}) ([]*domain.Pack, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	defer rows.Close()

	packs := []*domain.Pack{}
	for rows.Next() {
		pack, err := scanPack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pack: %w", err)
		}
		packs = append(packs, pack)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating packs: %w", err)
	}
	return packs, nil
}

// populate joins the referenced products into each pack, keeping list order
func (r *packRepository) populate(ctx context.Context, packs []*domain.Pack) error {
	if len(packs) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Pack, len(packs))
	ids := make([]uuid.UUID, 0, len(packs))
	for _, p := range packs {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query := `
		SELECT pp.pack_id, ` + productColumns + `
		FROM pack_products pp
		JOIN products p ON p.id = pp.product_id
		LEFT JOIN featured_products f ON f.product_id = p.id AND f.slot = '` + productOfTheYearSlot + `'
		WHERE pp.pack_id::text = ANY($1::text[])
		ORDER BY pp.pack_id, pp.position
	`

	rows, err := r.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load pack products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var packID uuid.UUID
		product, err := scanProduct(prefixScanner{row: rows, prefix: []interface{}{&packID}})
		if err != nil {
			return fmt.Errorf("failed to scan pack product: %w", err)
		}
		if pack, ok := byID[packID]; ok {
			pack.Products = append(pack.Products, product)
			pack.ProductIDs = append(pack.ProductIDs, product.ID)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating pack products: %w", err)
	}
	return nil
}

func nonNilMedia(media []domain.Media) []domain.Media {
	if media == nil {
		return []domain.Media{}
	}
	return media
}
