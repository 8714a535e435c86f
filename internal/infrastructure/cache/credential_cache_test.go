package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/infrastructure/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepository counts reads that reach the backing store
type countingRepository struct {
	*repository.MemoryCredentialRepository
	byShop int
	byID   int
	err    error
}

func (r *countingRepository) GetByShop(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	r.byShop++
	if r.err != nil {
		return nil, r.err
	}
	return r.MemoryCredentialRepository.GetByShop(ctx, shop)
}

func (r *countingRepository) GetByID(ctx context.Context, id string) (*domain.ShopCredential, error) {
	r.byID++
	if r.err != nil {
		return nil, r.err
	}
	return r.MemoryCredentialRepository.GetByID(ctx, id)
}

func setup(t *testing.T) (*CachedCredentialRepository, *countingRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := New(mr.Addr())
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(context.Background()))

	backend := &countingRepository{MemoryCredentialRepository: repository.NewMemoryCredentialRepository()}
	return NewCachedCredentialRepository(backend, r, time.Minute, zerolog.Nop()), backend, mr
}

func credential() *domain.ShopCredential {
	return &domain.ShopCredential{
		ID:          "id-1",
		Shop:        "a.myshopify.com",
		AccessToken: "enc:v1:abc",
		UpdatedAt:   time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveFillsBothKeys(t *testing.T) {
	repo, backend, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, credential()))
	assert.True(t, mr.Exists("shop_credential:shop:a.myshopify.com"))
	assert.True(t, mr.Exists("shop_credential:id:id-1"))
	assert.Equal(t, time.Minute, mr.TTL("shop_credential:id:id-1"))

	byShop, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, credential(), byShop)

	byID, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, credential(), byID)

	assert.Zero(t, backend.byShop)
	assert.Zero(t, backend.byID)
}

func TestReadThrough(t *testing.T) {
	repo, backend, mr := setup(t)
	ctx := context.Background()
	require.NoError(t, backend.MemoryCredentialRepository.Save(ctx, credential()))

	first, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "a.myshopify.com", first.Shop)
	assert.Equal(t, 1, backend.byID)
	assert.True(t, mr.Exists("shop_credential:shop:a.myshopify.com"))

	_, err = repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.byID)

	mr.FastForward(2 * time.Minute)
	_, err = repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.byID)
}

func TestMissesAreNotCached(t *testing.T) {
	repo, backend, mr := setup(t)
	ctx := context.Background()

	missing, err := repo.GetByShop(ctx, "unknown.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.False(t, mr.Exists("shop_credential:shop:unknown.myshopify.com"))

	_, _ = repo.GetByShop(ctx, "unknown.myshopify.com")
	assert.Equal(t, 2, backend.byShop)
}

func TestMalformedEntryIsDiscarded(t *testing.T) {
	repo, backend, mr := setup(t)
	ctx := context.Background()
	require.NoError(t, backend.MemoryCredentialRepository.Save(ctx, credential()))
	require.NoError(t, mr.Set("shop_credential:shop:a.myshopify.com", "{not json"))

	got, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, 1, backend.byShop)
}

func TestRedisDownFallsBackToBackend(t *testing.T) {
	repo, backend, mr := setup(t)
	ctx := context.Background()
	require.NoError(t, backend.MemoryCredentialRepository.Save(ctx, credential()))
	mr.Close()

	got, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)

	require.NoError(t, repo.Save(ctx, credential()))
}

func TestBackendErrorsPropagate(t *testing.T) {
	repo, backend, _ := setup(t)
	backend.err = errors.New("firestore unavailable")

	_, err := repo.GetByShop(context.Background(), "a.myshopify.com")
	assert.EqualError(t, err, "firestore unavailable")
}
