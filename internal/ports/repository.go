package ports

import (
	"context"

	"shopify-customer-sync/internal/domain"
)

// CredentialRepository defines the interface for shop credential persistence.
// Records are keyed by shop domain; GetByID is the secondary lookup used by the import flow.
type CredentialRepository interface {
	// GetByShop returns the record for a shop domain, or nil when the shop was never saved
	GetByShop(ctx context.Context, shop string) (*domain.ShopCredential, error)

	// GetByID returns the first record carrying the given unique ID, or nil
	GetByID(ctx context.Context, id string) (*domain.ShopCredential, error)

	// Save creates or overwrites the record for credential.Shop
	Save(ctx context.Context, credential *domain.ShopCredential) error
}

// EncryptionService encrypts secrets before they are persisted
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
