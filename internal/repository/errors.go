package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// translateError maps driver errors onto domain sentinels. action describes
// the failed operation for the wrapped message.
func translateError(err error, action string, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", action, notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if conflict != nil {
				return fmt.Errorf("failed to %s: %w", action, conflict)
			}
		case pgForeignKeyViolation:
			if notFound != nil {
				return fmt.Errorf("failed to %s: %s: %w", action, pgErr.ConstraintName, notFound)
			}
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
