package store

import (
	"context"

	"github.com/google/uuid"

	"turnero/backend/internal/domain"
)

type ClientRepository interface {
	// UpsertClientByPhone creates the client or, when the phone is already
	// known, updates name and notes of the existing row.
	UpsertClientByPhone(ctx context.Context, c domain.Client) (domain.Client, error)

	CreateClient(ctx context.Context, c domain.Client) (domain.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	UpdateClient(ctx context.Context, c domain.Client) (domain.Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error
}
