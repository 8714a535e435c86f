package repository

import (
	"context"
	"sync"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/ports"
)

// MemoryCredentialRepository keeps credentials in process memory.
// Used for local development and tests; contents are lost on restart.
type MemoryCredentialRepository struct {
	mu     sync.RWMutex
	byShop map[string]domain.ShopCredential
}

// NewMemoryCredentialRepository creates an empty in-memory repository
func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{
		byShop: make(map[string]domain.ShopCredential),
	}
}

var _ ports.CredentialRepository = (*MemoryCredentialRepository)(nil)

// Save creates or overwrites the credential of a shop
func (r *MemoryCredentialRepository) Save(_ context.Context, credential *domain.ShopCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byShop[credential.Shop] = *credential
	return nil
}

// GetByShop retrieves a credential by shop domain
func (r *MemoryCredentialRepository) GetByShop(_ context.Context, shop string) (*domain.ShopCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byShop[shop]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// GetByID retrieves a credential by its unique ID
func (r *MemoryCredentialRepository) GetByID(_ context.Context, id string) (*domain.ShopCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byShop {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}
