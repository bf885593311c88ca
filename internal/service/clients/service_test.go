package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/phone"
	"turnero/backend/internal/store"
)

type fakeRepo struct {
	upsertFn func(ctx context.Context, c domain.Client) (domain.Client, error)
	createFn func(ctx context.Context, c domain.Client) (domain.Client, error)
	getFn    func(ctx context.Context, id uuid.UUID) (domain.Client, error)
	listFn   func(ctx context.Context) ([]domain.Client, error)
	updateFn func(ctx context.Context, c domain.Client) (domain.Client, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (f *fakeRepo) UpsertClientByPhone(ctx context.Context, c domain.Client) (domain.Client, error) {
	if f.upsertFn == nil {
		panic("UpsertClientByPhone not configured")
	}
	return f.upsertFn(ctx, c)
}

func (f *fakeRepo) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if f.createFn == nil {
		panic("CreateClient not configured")
	}
	return f.createFn(ctx, c)
}

func (f *fakeRepo) GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	if f.getFn == nil {
		panic("GetClient not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	if f.listFn == nil {
		panic("ListClients not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeRepo) UpdateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if f.updateFn == nil {
		panic("UpdateClient not configured")
	}
	return f.updateFn(ctx, c)
}

func (f *fakeRepo) DeleteClient(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("DeleteClient not configured")
	}
	return f.deleteFn(ctx, id)
}

func newService(repo store.ClientRepository) *Service {
	return NewService(repo, phone.NewNormalizer("+54", true), nil)
}

func TestResolve_ExplicitIDIsUsedVerbatim(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000123")
	svc := newService(&fakeRepo{})

	got, err := svc.Resolve(context.Background(), Ref{ID: id, Client: &Input{Name: "ignored"}})
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestResolve_UpsertsNormalisedInlineClient(t *testing.T) {
	want := uuid.MustParse("00000000-0000-0000-0000-000000000456")
	var saved domain.Client
	svc := newService(&fakeRepo{
		upsertFn: func(ctx context.Context, c domain.Client) (domain.Client, error) {
			saved = c
			c.ID = want
			return c, nil
		},
	})

	notes := "  prefers scissors  "
	got, err := svc.Resolve(context.Background(), Ref{Client: &Input{Name: "  Juan  ", Phone: "11 2345-6789", Notes: &notes}})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "Juan", saved.Name)
	assert.Equal(t, "+5491123456789", saved.Phone)
	require.NotNil(t, saved.Notes)
	assert.Equal(t, "prefers scissors", *saved.Notes)
}

func TestResolve_Validation(t *testing.T) {
	svc := newService(&fakeRepo{})

	cases := []struct {
		name  string
		ref   Ref
		field string
	}{
		{"missing", Ref{}, "clientId"},
		{"blank name", Ref{Client: &Input{Name: "   ", Phone: "1123456789"}}, "client.name"},
		{"bad phone", Ref{Client: &Input{Name: "Ana", Phone: "12"}}, "client.phone"},
		{"no digits", Ref{Client: &Input{Name: "Ana", Phone: "abc"}}, "client.phone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Resolve(context.Background(), tc.ref)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestResolve_WrapsStorageFailure(t *testing.T) {
	cause := errors.New("db down")
	svc := newService(&fakeRepo{
		upsertFn: func(ctx context.Context, c domain.Client) (domain.Client, error) {
			return domain.Client{}, cause
		},
	})

	_, err := svc.Resolve(context.Background(), Ref{Client: &Input{Name: "Ana", Phone: "+5491100000000"}})
	var dep *domain.DependencyError
	require.ErrorAs(t, err, &dep)
	assert.ErrorIs(t, err, cause)
}

func TestUpdate_MergesPatchAndRenormalisesPhone(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000789")
	notes := "old"
	cur := domain.Client{ID: id, Name: "Ana", Phone: "+5491100000000", Notes: &notes}

	var saved domain.Client
	svc := newService(&fakeRepo{
		getFn: func(ctx context.Context, got uuid.UUID) (domain.Client, error) {
			assert.Equal(t, id, got)
			return cur, nil
		},
		updateFn: func(ctx context.Context, c domain.Client) (domain.Client, error) {
			saved = c
			return c, nil
		},
	})

	_, err := svc.Update(context.Background(), id, Patch{
		Phone: mo.Some("11 5555-0000"),
		Notes: mo.Some[*string](nil),
	})
	require.NoError(t, err)
	assert.Equal(t, id, saved.ID)
	assert.Equal(t, "Ana", saved.Name)
	assert.Equal(t, "+5491155550000", saved.Phone)
	assert.Nil(t, saved.Notes)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newService(&fakeRepo{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.Client, error) {
			return domain.Client{}, store.ErrNotFound
		},
	})
	_, err := svc.Update(context.Background(), uuid.New(), Patch{Name: mo.Some("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateAndDelete_PassThroughConflicts(t *testing.T) {
	svc := newService(&fakeRepo{
		createFn: func(ctx context.Context, c domain.Client) (domain.Client, error) {
			return domain.Client{}, store.ErrConflict
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			return store.ErrConflict
		},
	})

	_, err := svc.Create(context.Background(), Input{Name: "Ana", Phone: "+5491100000000"})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New()), store.ErrConflict)

	var ve *domain.ValidationError
	assert.ErrorAs(t, svc.Delete(context.Background(), uuid.Nil), &ve)
}
