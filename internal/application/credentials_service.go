package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CredentialsService issues and resolves the unique IDs that let one store pull from another
type CredentialsService struct {
	repo          ports.CredentialRepository
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
	now           func() time.Time
	newID         func() string
}

// NewCredentialsService creates a new credentials service.
// encryptionSvc may be nil, in which case tokens are stored as given.
func NewCredentialsService(
	repo ports.CredentialRepository,
	encryptionSvc ports.EncryptionService,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		repo:          repo,
		encryptionSvc: encryptionSvc,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// SaveShopCredentials stores the access token for a shop and returns its unique ID.
// The ID generated on the first save is kept on every later save for the same shop.
func (s *CredentialsService) SaveShopCredentials(ctx context.Context, shop string, accessToken string) (string, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return "", domain.ValidationFailed("shop", "shop is required")
	}
	if accessToken == "" {
		return "", domain.ValidationFailed("accessToken", "access token is required")
	}

	existing, err := s.repo.GetByShop(ctx, shop)
	if err != nil {
		return "", fmt.Errorf("failed to check existing credentials: %w", err)
	}

	id := s.newID()
	if existing != nil && existing.ID != "" {
		id = existing.ID
	}

	storedToken := accessToken
	if s.encryptionSvc != nil {
		storedToken, err = s.encryptionSvc.Encrypt(accessToken)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt access token: %w", err)
		}
	}

	credential := &domain.ShopCredential{
		ID:          id,
		Shop:        shop,
		AccessToken: storedToken,
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.repo.Save(ctx, credential); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save shop credentials")
		return "", fmt.Errorf("failed to save shop credentials: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Bool("existing", existing != nil).
		Msg("Shop credentials saved")

	return id, nil
}

// GetCurrentShopID returns the unique ID of a shop, or "" when it was never saved
func (s *CredentialsService) GetCurrentShopID(ctx context.Context, shop string) (string, error) {
	credential, err := s.repo.GetByShop(ctx, shop)
	if err != nil {
		return "", fmt.Errorf("failed to get shop credentials: %w", err)
	}
	if credential == nil {
		return "", nil
	}
	return credential.ID, nil
}

// GetShopCredentials returns the decrypted credentials of a shop, or nil when the shop was never saved
func (s *CredentialsService) GetShopCredentials(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	credential, err := s.repo.GetByShop(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop credentials: %w", err)
	}
	return s.decrypt(credential)
}

// GetShopCredentialsByID resolves a unique ID to its shop credentials.
// An ID that was never issued yields nil, nil.
func (s *CredentialsService) GetShopCredentialsByID(ctx context.Context, id string) (*domain.ShopCredential, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	credential, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop credentials by id: %w", err)
	}
	return s.decrypt(credential)
}

// EnsureShopID returns the shop's unique ID, saving the credentials first when there is none yet
func (s *CredentialsService) EnsureShopID(ctx context.Context, shop string, accessToken string) (string, error) {
	id, err := s.GetCurrentShopID(ctx, shop)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return s.SaveShopCredentials(ctx, shop, accessToken)
}

func (s *CredentialsService) decrypt(credential *domain.ShopCredential) (*domain.ShopCredential, error) {
	if credential == nil || s.encryptionSvc == nil || credential.AccessToken == "" {
		return credential, nil
	}

	token, err := s.encryptionSvc.Decrypt(credential.AccessToken)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", credential.Shop).Msg("Failed to decrypt access token")
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	decrypted := *credential
	decrypted.AccessToken = token
	return &decrypted, nil
}
