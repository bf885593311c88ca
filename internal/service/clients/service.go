// Package clients resolves booking clients and manages the client directory.
package clients

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/phone"
	"turnero/backend/internal/store"
)

// Input is an inline client description.
type Input struct {
	Name  string
	Phone string
	Notes *string
}

// Ref points at a client either by id or by inline details. A non-nil ID
// wins over Client.
type Ref struct {
	ID     uuid.UUID
	Client *Input
}

// Patch carries the fields of a partial client update.
type Patch struct {
	Name  mo.Option[string]
	Phone mo.Option[string]
	Notes mo.Option[*string]
}

type Service struct {
	repo   store.ClientRepository
	phones phone.Normalizer
	logger *slog.Logger
}

func NewService(repo store.ClientRepository, phones phone.Normalizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		phones: phones,
		logger: logger.With(slog.String("component", "clients")),
	}
}

// Resolve returns the id a booking should reference. Explicit ids are used
// verbatim; the storage foreign key rejects unknown ones later. Inline
// clients are upserted by normalised phone.
func (s *Service) Resolve(ctx context.Context, ref Ref) (uuid.UUID, error) {
	if ref.ID != uuid.Nil {
		return ref.ID, nil
	}
	if ref.Client == nil {
		return uuid.Nil, domain.NewValidationError("clientId", "clientId or client is required")
	}

	c, err := s.prepare(*ref.Client, "client.")
	if err != nil {
		return uuid.Nil, err
	}
	out, err := s.repo.UpsertClientByPhone(ctx, c)
	if err != nil {
		return uuid.Nil, store.AsDependency("upsert client", err)
	}
	return out.ID, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, store.AsDependency("list clients", err)
	}
	return rows, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	if id == uuid.Nil {
		return domain.Client{}, domain.NewValidationError("id", "id is required")
	}
	c, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return domain.Client{}, store.AsDependency("get client", err)
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, in Input) (domain.Client, error) {
	c, err := s.prepare(in, "")
	if err != nil {
		return domain.Client{}, err
	}
	out, err := s.repo.CreateClient(ctx, c)
	if err != nil {
		return domain.Client{}, store.AsDependency("create client", err)
	}
	s.logger.InfoContext(ctx, "client created", slog.String("client_id", out.ID.String()))
	return out, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (domain.Client, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	in := Input{
		Name:  patch.Name.OrElse(cur.Name),
		Phone: patch.Phone.OrElse(cur.Phone),
		Notes: patch.Notes.OrElse(cur.Notes),
	}
	c, err := s.prepare(in, "")
	if err != nil {
		return domain.Client{}, err
	}
	c.ID = cur.ID
	c.CreatedAt = cur.CreatedAt

	out, err := s.repo.UpdateClient(ctx, c)
	if err != nil {
		return domain.Client{}, store.AsDependency("update client", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.NewValidationError("id", "id is required")
	}
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return store.AsDependency("delete client", err)
	}
	s.logger.InfoContext(ctx, "client deleted", slog.String("client_id", id.String()))
	return nil
}

func (s *Service) prepare(in Input, fieldPrefix string) (domain.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Client{}, domain.NewValidationError(fieldPrefix+"name", fieldPrefix+"name is required")
	}
	normalized, ok := s.phones.NormalizeValid(in.Phone)
	if !ok {
		return domain.Client{}, domain.NewValidationError(fieldPrefix+"phone", fieldPrefix+"phone must be a valid phone number")
	}
	return domain.Client{
		Name:  name,
		Phone: normalized,
		Notes: trimmedOrNil(in.Notes),
	}, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
