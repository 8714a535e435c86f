package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/ports"

	"github.com/rs/zerolog"
)

// ProductPageSize is the fixed page read by the product listing
const ProductPageSize = 10

const productDateLayout = "2006-01-02"

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*(\.[a-zA-Z0-9][a-zA-Z0-9\-]*)+$`)

// StoreService checks external store credentials and reads store data outside the customer flow
type StoreService struct {
	client ports.ShopifyClient
	logger zerolog.Logger
}

// NewStoreService creates a new store service
func NewStoreService(client ports.ShopifyClient, logger zerolog.Logger) *StoreService {
	return &StoreService{
		client: client,
		logger: logger,
	}
}

// NormalizeShopDomain trims a shop input down to its bare host, e.g. "https://Foo.myshopify.com/" -> "foo.myshopify.com"
func NormalizeShopDomain(shop string) (string, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	shop = strings.TrimSuffix(shop, "/")
	if shop == "" {
		return "", domain.ValidationFailed("shop", "Shop and token are required.")
	}
	if !shopDomainPattern.MatchString(shop) {
		return "", domain.ValidationFailed("shop", "Invalid shop domain.")
	}
	return shop, nil
}

// ValidateStore confirms that token grants Admin API access to shop.
// Any answer from Shopify other than a shop object means the credentials are invalid;
// a failure to reach Shopify is reported as such.
func (s *StoreService) ValidateStore(ctx context.Context, shop string, token string) error {
	var resp shopResponse
	err := s.client.GraphQL(ctx, shop, token, shopQuery, nil, &resp)
	if err != nil {
		var remote *domain.RemoteError
		if errors.As(err, &remote) {
			s.logger.Warn().Str("shop", shop).Int("status", remote.Status).Msg("Store rejected credentials")
			return domain.Unauthorized("Invalid shop or token.")
		}
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to reach store during login")
		return fmt.Errorf("failed to validate store: %w", err)
	}
	if resp.Shop == nil {
		return domain.Unauthorized("Invalid shop or token.")
	}

	s.logger.Info().Str("shop", shop).Str("name", resp.Shop.Name).Msg("External store credentials validated")
	return nil
}

// ListProducts reads the first page of products from a store
func (s *StoreService) ListProducts(ctx context.Context, store domain.ExternalSession) ([]domain.Product, error) {
	products, err := s.client.GetProducts(ctx, store.Shop, store.Token, ProductPageSize)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", store.Shop).Msg("Failed to fetch products")
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		result = append(result, domain.Product{
			Title:     p.Title,
			Vendor:    p.Vendor,
			Status:    string(p.Status),
			CreatedAt: formatDate(p.CreatedAt),
		})
	}
	return result, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(productDateLayout)
}
