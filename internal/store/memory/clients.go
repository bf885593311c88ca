package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/store"
)

func (s *Store) UpsertClientByPhone(ctx context.Context, c domain.Client) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.clientByPhone(c.Phone); ok {
		existing.Name = c.Name
		if c.Notes != nil {
			existing.Notes = c.Notes
		}
		existing.UpdatedAt = s.now()
		s.clients[existing.ID] = existing
		return existing, nil
	}
	return s.insertClient(c)
}

func (s *Store) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clientByPhone(c.Phone); ok {
		return domain.Client{}, store.ErrConflict
	}
	return s.insertClient(c)
}

func (s *Store) GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return domain.Client{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.clients[c.ID]
	if !ok {
		return domain.Client{}, store.ErrNotFound
	}
	if other, ok := s.clientByPhone(c.Phone); ok && other.ID != c.ID {
		return domain.Client{}, store.ErrConflict
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.now()
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) DeleteClient(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		return store.ErrNotFound
	}
	for _, b := range s.bookings {
		if b.ClientID == id {
			return store.ErrConflict
		}
	}
	delete(s.clients, id)
	return nil
}

func (s *Store) clientByPhone(phone string) (domain.Client, bool) {
	for _, c := range s.clients {
		if c.Phone == phone {
			return c, true
		}
	}
	return domain.Client{}, false
}

func (s *Store) insertClient(c domain.Client) (domain.Client, error) {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Client{}, err
		}
		c.ID = id
	} else if _, exists := s.clients[c.ID]; exists {
		return domain.Client{}, store.ErrConflict
	}
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.clients[c.ID] = c
	return c, nil
}
