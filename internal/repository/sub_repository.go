package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sofiene-feki/skands-server/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSubNotFound = errors.New("subcategory not found")
)

const subSelect = `
	SELECT s.id, s.name, s.slug, s.parent_id, c.name, s.created_at, s.updated_at
	FROM subs s
	JOIN categories c ON c.id = s.parent_id`

// SubRepository defines the interface for subcategory data access
type SubRepository interface {
	Create(ctx context.Context, sub *domain.Sub) error
	List(ctx context.Context, parentID *uuid.UUID) ([]*domain.Sub, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Sub, error)
	Update(ctx context.Context, sub *domain.Sub) error
	Delete(ctx context.Context, id uuid.UUID) (*domain.Sub, error)
}

type subRepository struct {
	db *sql.DB
}

// NewSubRepository creates a new instance of SubRepository
func NewSubRepository(db *sql.DB) SubRepository {
	return &subRepository{db: db}
}

func scanSub(row rowScanner) (*domain.Sub, error) {
	sub := &domain.Sub{Parent: &domain.ParentRef{}}
	err := row.Scan(
		&sub.ID,
		&sub.Name,
		&sub.Slug,
		&sub.ParentID,
		&sub.Parent.Name,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	sub.Parent.ID = sub.ParentID
	return sub, err
}

// Create inserts a subcategory. An unknown parent yields ErrUnknownReference.
func (r *subRepository) Create(ctx context.Context, sub *domain.Sub) error {
	query := `
		INSERT INTO subs (id, name, slug, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, sub.ID, sub.Name, sub.Slug, sub.ParentID, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "create subcategory")
	}

	return nil
}

// List retrieves subcategories with their parent name, optionally restricted to one parent
func (r *subRepository) List(ctx context.Context, parentID *uuid.UUID) ([]*domain.Sub, error) {
	query := subSelect + ` ORDER BY s.name ASC`
	args := []interface{}{}
	if parentID != nil {
		query = subSelect + ` WHERE s.parent_id = $1 ORDER BY s.name ASC`
		args = append(args, *parentID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	subs := []*domain.Sub{}
	for rows.Next() {
		sub, err := scanSub(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		subs = append(subs, sub)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcategories: %w", err)
	}

	return subs, nil
}

// FindBySlug retrieves a subcategory by slug
func (r *subRepository) FindBySlug(ctx context.Context, slug string) (*domain.Sub, error) {
	sub, err := scanSub(r.db.QueryRowContext(ctx, subSelect+` WHERE s.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubNotFound
		}
		return nil, fmt.Errorf("failed to find subcategory: %w", err)
	}

	return sub, nil
}

// Update renames or re-parents a subcategory
func (r *subRepository) Update(ctx context.Context, sub *domain.Sub) error {
	query := `UPDATE subs SET name = $2, slug = $3, parent_id = $4 WHERE id = $1 RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, sub.ID, sub.Name, sub.Slug, sub.ParentID).Scan(&sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSubNotFound
		}
		return mapWriteError(err, "update subcategory")
	}

	return nil
}

// Delete removes a subcategory and returns it
func (r *subRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Sub, error) {
	query := `
		WITH deleted AS (DELETE FROM subs WHERE id = $1 RETURNING *)
		SELECT d.id, d.name, d.slug, d.parent_id, c.name, d.created_at, d.updated_at
		FROM deleted d
		JOIN categories c ON c.id = d.parent_id
	`

	sub, err := scanSub(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubNotFound
		}
		return nil, fmt.Errorf("failed to delete subcategory: %w", err)
	}

	return sub, nil
}
