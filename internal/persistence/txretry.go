package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const txRetryAttempts = 3

// IsSerializationFailure reports whether err is a store integrity conflict
// (serialization failure or deadlock) that is safe to retry as a whole.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// WithTxRetry re-runs fn when it fails with a serialization conflict. fn must
// be a complete transactional operation; partial state never survives a retry.
func WithTxRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < txRetryAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsSerializationFailure(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
