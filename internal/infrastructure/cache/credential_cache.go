package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL bounds how long a cached credential may lag behind the backing store
const DefaultTTL = 5 * time.Minute

// Redis wraps a go-redis client
type Redis struct {
	C *redis.Client
}

// New creates a Redis client for addr
func New(addr string) *Redis {
	return &Redis{
		C: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.C.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.C.Close()
}

// CachedCredentialRepository is a read-through cache in front of another CredentialRepository.
// Cache failures fall back to the backing store; only found records are cached.
type CachedCredentialRepository struct {
	next   ports.CredentialRepository
	redis  *Redis
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedCredentialRepository wraps next with a Redis cache
func NewCachedCredentialRepository(next ports.CredentialRepository, r *Redis, ttl time.Duration, logger zerolog.Logger) *CachedCredentialRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedCredentialRepository{
		next:   next,
		redis:  r,
		ttl:    ttl,
		logger: logger,
	}
}

var _ ports.CredentialRepository = (*CachedCredentialRepository)(nil)

func shopKey(shop string) string { return "shop_credential:shop:" + shop }
func idKey(id string) string     { return "shop_credential:id:" + id }

// Save writes to the backing store, then refreshes both cache entries
func (c *CachedCredentialRepository) Save(ctx context.Context, credential *domain.ShopCredential) error {
	if err := c.next.Save(ctx, credential); err != nil {
		return err
	}
	c.fill(ctx, credential)
	return nil
}

// GetByShop retrieves a credential by shop domain
func (c *CachedCredentialRepository) GetByShop(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	if cached := c.lookup(ctx, shopKey(shop)); cached != nil {
		return cached, nil
	}

	credential, err := c.next.GetByShop(ctx, shop)
	if err != nil || credential == nil {
		return credential, err
	}
	c.fill(ctx, credential)
	return credential, nil
}

// GetByID retrieves a credential by its unique ID
func (c *CachedCredentialRepository) GetByID(ctx context.Context, id string) (*domain.ShopCredential, error) {
	if cached := c.lookup(ctx, idKey(id)); cached != nil {
		return cached, nil
	}

	credential, err := c.next.GetByID(ctx, id)
	if err != nil || credential == nil {
		return credential, err
	}
	c.fill(ctx, credential)
	return credential, nil
}

func (c *CachedCredentialRepository) lookup(ctx context.Context, key string) *domain.ShopCredential {
	raw, err := c.redis.C.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Credential cache read failed")
		}
		return nil
	}

	var credential domain.ShopCredential
	if err := json.Unmarshal(raw, &credential); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Discarding malformed cache entry")
		_ = c.redis.C.Del(ctx, key).Err()
		return nil
	}
	return &credential
}

func (c *CachedCredentialRepository) fill(ctx context.Context, credential *domain.ShopCredential) {
	raw, err := json.Marshal(credential)
	if err != nil {
		c.logger.Warn().Err(fmt.Errorf("failed to encode credential: %w", err)).Msg("Skipping credential cache fill")
		return
	}

	pipe := c.redis.C.TxPipeline()
	pipe.Set(ctx, shopKey(credential.Shop), raw, c.ttl)
	if credential.ID != "" {
		pipe.Set(ctx, idKey(credential.ID), raw, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Str("shop", credential.Shop).Msg("Credential cache write failed")
	}
}
