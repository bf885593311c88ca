package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/store"
)

type ClientRepo struct {
	db *bun.DB
}

func NewClientRepo(db *bun.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) UpsertClientByPhone(ctx context.Context, c domain.Client) (domain.Client, error) {
	m := c
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (phone) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("notes = COALESCE(EXCLUDED.notes, c.notes)").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Client{}, mapClientWriteError(err)
	}
	return m, nil
}

func (r *ClientRepo) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	m := c
	if _, err := r.db.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
		return domain.Client{}, mapClientWriteError(err)
	}
	return m, nil
}

func (r *ClientRepo) GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	var c domain.Client
	err := r.db.NewSelect().Model(&c).Where("c.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Client{}, mapReadError(err)
	}
	return c, nil
}

func (r *ClientRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	var rows []domain.Client
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("c.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClientRepo) UpdateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	m := c
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("name", "phone", "notes", "updated_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Client{}, mapClientWriteError(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Client{}, err
	}
	return m, nil
}

func (r *ClientRepo) DeleteClient(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Client)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapClientWriteError(err)
	}
	return requireAffected(res)
}

var _ store.ClientRepository = (*ClientRepo)(nil)
var _ store.BookingRepository = (*BookingRepo)(nil)
var _ store.CalendarTx = calendarTx{}
