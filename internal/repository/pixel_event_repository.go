package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sofiene-feki/skands-server/internal/domain"
)

// PixelEventRepository stores conversion events that could not be relayed
type PixelEventRepository interface {
	Create(ctx context.Context, event *domain.PixelEvent) error
	List(ctx context.Context, status domain.PixelEventStatus, limit int) ([]*domain.PixelEvent, error)
}

type pixelEventRepository struct {
	db *sql.DB
}

// NewPixelEventRepository creates a new instance of PixelEventRepository
func NewPixelEventRepository(db *sql.DB) PixelEventRepository {
	return &pixelEventRepository{db: db}
}

func (r *pixelEventRepository) Create(ctx context.Context, event *domain.PixelEvent) error {
	userData, err := encodeJSON(event.UserData)
	if err != nil {
		return err
	}
	customData, err := encodeJSON(event.CustomData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pixel_events (id, event_name, event_time, event_id, event_source_url,
			user_data, custom_data, status, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.EventName,
		event.EventTime,
		event.EventID,
		event.EventSourceURL,
		userData,
		customData,
		event.Status,
		event.Response,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store pixel event: %w", err)
	}

	return nil
}

// List returns stored events newest first. An empty status matches every event.
func (r *pixelEventRepository) List(ctx context.Context, status domain.PixelEventStatus, limit int) ([]*domain.PixelEvent, error) {
	query := `
		SELECT id, event_name, event_time, event_id, event_source_url, user_data, custom_data,
			status, response, created_at
		FROM pixel_events
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC, id ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pixel events: %w", err)
	}
	defer rows.Close()

	events := []*domain.PixelEvent{}
	for rows.Next() {
		event := &domain.PixelEvent{}
		var userData, customData []byte
		err := rows.Scan(
			&event.ID,
			&event.EventName,
			&event.EventTime,
			&event.EventID,
			&event.EventSourceURL,
			&userData,
			&customData,
			&event.Status,
			&event.Response,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pixel event: %w", err)
		}
		if err := decodeJSON(userData, &event.UserData, "user_data"); err != nil {
			return nil, err
		}
		if err := decodeJSON(customData, &event.CustomData, "custom_data"); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pixel events: %w", err)
	}

	return events, nil
}
