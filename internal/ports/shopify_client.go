package ports

import (
	"context"

	"shopify-customer-sync/internal/domain"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Admin API operations used by the application.
// Failures reported by Shopify come back as *domain.RemoteError; network failures wrap domain.ErrStoreUnreachable.
type ShopifyClient interface {
	// GraphQL posts {query, variables} to graphql.json and decodes the data member into resp
	GraphQL(ctx context.Context, shop string, accessToken string, query string, variables map[string]interface{}, resp interface{}) error

	// GetProducts lists products through the REST endpoint
	GetProducts(ctx context.Context, shop string, accessToken string, limit int) ([]shopify.Product, error)
}

// SyncMetrics records customer creation outcomes
type SyncMetrics interface {
	ObserveResults(flow string, results []domain.SyncResult)
	ObserveBatchFailure(flow string)
}
