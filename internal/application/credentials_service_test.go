package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/infrastructure/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseEncryption is a reversible stand-in for the AES service
type reverseEncryption struct{}

func (reverseEncryption) Encrypt(s string) (string, error) { return "enc:" + reverse(s), nil }

func (reverseEncryption) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "enc:") {
		return "", errors.New("not encrypted")
	}
	return reverse(strings.TrimPrefix(s, "enc:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func TestSaveShopCredentials_IDIsStable(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCredentialRepository()
	svc := NewCredentialsService(repo, nil, zerolog.Nop())

	first, err := svc.SaveShopCredentials(ctx, "a.myshopify.com", "token-1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.SaveShopCredentials(ctx, "a.myshopify.com", "token-2")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "token-2", stored.AccessToken)

	other, err := svc.SaveShopCredentials(ctx, "b.myshopify.com", "token-3")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestSaveShopCredentials_UpdatesTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCredentialRepository()
	svc := NewCredentialsService(repo, nil, zerolog.Nop())

	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	_, err := svc.SaveShopCredentials(ctx, "a.myshopify.com", "t")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = svc.SaveShopCredentials(ctx, "a.myshopify.com", "t")
	require.NoError(t, err)

	stored, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, now, stored.UpdatedAt)
}

func TestSaveShopCredentials_Validation(t *testing.T) {
	svc := NewCredentialsService(repository.NewMemoryCredentialRepository(), nil, zerolog.Nop())

	_, err := svc.SaveShopCredentials(context.Background(), " ", "t")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.SaveShopCredentials(context.Background(), "a.myshopify.com", "")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGetShopCredentialsByID(t *testing.T) {
	ctx := context.Background()
	svc := NewCredentialsService(repository.NewMemoryCredentialRepository(), nil, zerolog.Nop())

	id, err := svc.SaveShopCredentials(ctx, "a.myshopify.com", "token-1")
	require.NoError(t, err)

	credential, err := svc.GetShopCredentialsByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, credential)
	assert.Equal(t, "a.myshopify.com", credential.Shop)
	assert.Equal(t, "token-1", credential.AccessToken)

	missing, err := svc.GetShopCredentialsByID(ctx, "never-issued")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := svc.GetShopCredentialsByID(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, empty)
}

func TestGetCurrentShopID(t *testing.T) {
	ctx := context.Background()
	svc := NewCredentialsService(repository.NewMemoryCredentialRepository(), nil, zerolog.Nop())

	id, err := svc.GetCurrentShopID(ctx, "unknown.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "", id)

	saved, err := svc.SaveShopCredentials(ctx, "a.myshopify.com", "t")
	require.NoError(t, err)

	id, err = svc.GetCurrentShopID(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, saved, id)
}

func TestEnsureShopID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCredentialRepository()
	svc := NewCredentialsService(repo, nil, zerolog.Nop())

	id, err := svc.EnsureShopID(ctx, "a.myshopify.com", "token-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := svc.EnsureShopID(ctx, "a.myshopify.com", "token-2")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	stored, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "token-1", stored.AccessToken)
}

func TestCredentialsService_EncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCredentialRepository()
	svc := NewCredentialsService(repo, reverseEncryption{}, zerolog.Nop())

	id, err := svc.SaveShopCredentials(ctx, "a.myshopify.com", "shpat_abc")
	require.NoError(t, err)

	stored, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "enc:cba_taphs", stored.AccessToken)

	byShop, err := svc.GetShopCredentials(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", byShop.AccessToken)

	byID, err := svc.GetShopCredentialsByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", byID.AccessToken)

	again, err := repo.GetByShop(ctx, "a.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "enc:cba_taphs", again.AccessToken)
}
