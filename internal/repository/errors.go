package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrSlugTaken is returned when a record would share its slug with another one
	ErrSlugTaken = errors.New("slug already in use")
	// ErrUnknownReference is returned when a record points at a row that does not exist
	ErrUnknownReference = errors.New("referenced record does not exist")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapWriteError translates constraint violations into sentinel errors
func mapWriteError(err error, action string) error {
	switch pgCode(err) {
	case uniqueViolation:
		return ErrSlugTaken
	case foreignKeyViolation:
		return ErrUnknownReference
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func encodeJSON(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return b, nil
}

func decodeJSON(raw []byte, dst interface{}, field string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return nil
}
