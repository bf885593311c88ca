package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"turnero/backend/internal/store"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeExclusionViolation  = "23P01"

	constraintNoOverlap   = "bookings_no_overlap"
	constraintBookingPK   = "bookings_pkey"
	constraintClientPhone = "clients_phone_key"
)

func mapBookingWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == codeExclusionViolation && pgErr.ConstraintName == constraintNoOverlap:
		return store.ErrConflict
	case pgErr.Code == codeForeignKeyViolation:
		return store.ErrUnknownClient
	case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraintBookingPK:
		return store.ErrIdempotencyConflict
	}
	return err
}

func mapClientWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraintClientPhone:
		return store.ErrConflict
	case pgErr.Code == codeForeignKeyViolation:
		// Client still referenced by bookings.
		return store.ErrConflict
	}
	return err
}

func mapReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
