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
	ErrStorySlideNotFound = errors.New("story slide not found")
)

const storySlideColumns = `id, title, description, cta, link, video_url, created_at, updated_at`

// StorySlideRepository defines the interface for story slide data access
type StorySlideRepository interface {
	Create(ctx context.Context, slide *domain.StorySlide) error
	List(ctx context.Context) ([]*domain.StorySlide, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.StorySlide, error)
	Update(ctx context.Context, slide *domain.StorySlide) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type storySlideRepository struct {
	db *sql.DB
}

// NewStorySlideRepository creates a new instance of StorySlideRepository
func NewStorySlideRepository(db *sql.DB) StorySlideRepository {
	return &storySlideRepository{db: db}
}

func scanStorySlide(row rowScanner) (*domain.StorySlide, error) {
	slide := &domain.StorySlide{}
	err := row.Scan(
		&slide.ID,
		&slide.Title,
		&slide.Description,
		&slide.CTA,
		&slide.Link,
		&slide.VideoURL,
		&slide.CreatedAt,
		&slide.UpdatedAt,
	)
	return slide, err
}

func (r *storySlideRepository) Create(ctx context.Context, slide *domain.StorySlide) error {
	query := `
		INSERT INTO story_slides (id, title, description, cta, link, video_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		slide.ID,
		slide.Title,
		slide.Description,
		slide.CTA,
		slide.Link,
		slide.VideoURL,
		slide.CreatedAt,
		slide.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create story slide: %w", err)
	}

	return nil
}

func (r *storySlideRepository) List(ctx context.Context) ([]*domain.StorySlide, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+storySlideColumns+` FROM story_slides ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list story slides: %w", err)
	}
	defer rows.Close()

	slides := []*domain.StorySlide{}
	for rows.Next() {
		slide, err := scanStorySlide(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story slide: %w", err)
		}
		slides = append(slides, slide)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating story slides: %w", err)
	}

	return slides, nil
}

func (r *storySlideRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.StorySlide, error) {
	slide, err := scanStorySlide(r.db.QueryRowContext(ctx, `SELECT `+storySlideColumns+` FROM story_slides WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStorySlideNotFound
		}
		return nil, fmt.Errorf("failed to find story slide by ID: %w", err)
	}

	return slide, nil
}

func (r *storySlideRepository) Update(ctx context.Context, slide *domain.StorySlide) error {
	query := `
		UPDATE story_slides
		SET title = $2, description = $3, cta = $4, link = $5, video_url = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		slide.ID,
		slide.Title,
		slide.Description,
		slide.CTA,
		slide.Link,
		slide.VideoURL,
	).Scan(&slide.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStorySlideNotFound
		}
		return fmt.Errorf("failed to update story slide: %w", err)
	}

	return nil
}

func (r *storySlideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM story_slides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story slide: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrStorySlideNotFound
	}

	return nil
}
