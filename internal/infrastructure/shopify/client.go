package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultAPIVersion is the Admin API version used for direct calls
const DefaultAPIVersion = "2024-07"

type client struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Options configures the Admin API client
type Options struct {
	APIVersion string
	Timeout    time.Duration
	// HTTPClient replaces the default client; Timeout is ignored when set
	HTTPClient *http.Client
}

// NewClient creates a new Shopify Admin API adapter
func NewClient(apiKey, apiSecret string, opts Options, logger zerolog.Logger) ports.ShopifyClient {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: opts.APIVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client bound to one shop
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(
		c.app,
		shopDomain,
		accessToken,
		goshopify.WithVersion(c.apiVersion),
		goshopify.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// GraphQL API

func (c *client) GraphQL(ctx context.Context, shopDomain string, accessToken string, query string, variables map[string]interface{}, resp interface{}) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}

	var vars interface{}
	if len(variables) > 0 {
		vars = variables
	}

	if err := client.GraphQL.Query(ctx, query, vars, resp); err != nil {
		c.logger.Debug().Err(err).Str("shop", shopDomain).Msg("GraphQL request failed")
		return translateError(shopDomain, err)
	}
	return nil
}

// Product API

func (c *client) GetProducts(ctx context.Context, shopDomain string, accessToken string, limit int) ([]goshopify.Product, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	products, err := client.Product.List(ctx, goshopify.ListOptions{Limit: limit})
	if err != nil {
		return nil, translateError(shopDomain, err)
	}
	return products, nil
}

// translateError maps go-shopify failures onto domain errors.
// A ResponseError means Shopify answered; anything else never got an answer.
func translateError(shopDomain string, err error) error {
	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return throttledError(rateErr)
	}
	var rateErrPtr *goshopify.RateLimitError
	if errors.As(err, &rateErrPtr) && rateErrPtr != nil {
		return throttledError(*rateErrPtr)
	}
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return remoteError(respErr)
	}
	var respErrPtr *goshopify.ResponseError
	if errors.As(err, &respErrPtr) && respErrPtr != nil {
		return remoteError(*respErrPtr)
	}
	return fmt.Errorf("failed to reach %s: %w: %w", shopDomain, domain.ErrStoreUnreachable, err)
}

// throttledError reports a throttle as 429 whether Shopify sent it as HTTP 429 or a THROTTLED GraphQL error
func throttledError(rateErr goshopify.RateLimitError) *domain.RemoteError {
	remote := remoteError(rateErr.ResponseError)
	remote.Status = http.StatusTooManyRequests
	if len(remote.Messages) == 0 {
		remote.Messages = []string{"Throttled"}
	}
	return remote
}

func remoteError(respErr goshopify.ResponseError) *domain.RemoteError {
	messages := append([]string(nil), respErr.Errors...)
	if len(messages) == 0 && respErr.Message != "" {
		messages = []string{respErr.Message}
	}
	status := respErr.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &domain.RemoteError{Status: status, Messages: messages}
}
