package store

import (
	"context"
	"errors"
	"fmt"

	"turnero/backend/internal/domain"
)

var (
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrUnknownClient       = fmt.Errorf("unknown client: %w", ErrNotFound)
)

// AsDependency passes through errors the caller can act on (sentinels,
// validation errors, context cancellation) and wraps everything else as a
// domain.DependencyError for op.
func AsDependency(op string, err error) error {
	if err == nil {
		return nil
	}
	var validation *domain.ValidationError
	var dependency *domain.DependencyError
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrIdempotencyConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &validation),
		errors.As(err, &dependency):
		return err
	}
	return &domain.DependencyError{Op: op, Err: err}
}
