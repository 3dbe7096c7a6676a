package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/hiring/internal/domain"
)

const pgUniqueViolation = "23505"

// jsonColumn stores a value in a JSONB column.
type jsonColumn[T any] struct {
	V T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *jsonColumn[T]) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	return json.Unmarshal(raw, &c.V)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// staleOrMissing tells a version mismatch apart from a deleted row after a
// conditional update matched nothing.
func staleOrMissing(ctx context.Context, db *sqlx.DB, table string, id any) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := db.GetContext(ctx, &exists, query, id); err != nil {
		return fmt.Errorf("check %s %v: %w", table, id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s %v was modified concurrently: %w", table, id, domain.ErrConflict)
}
