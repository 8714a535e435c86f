package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	FlowBatchImport = "batch_import"
	FlowShopPull    = "shop_pull"
)

// ErrDestinationFailed marks a shop-to-shop pull that could not write into the destination store
var ErrDestinationFailed = errors.New("destination store failed")

// CustomerSyncService moves customers from one store into another through the Admin GraphQL API
type CustomerSyncService struct {
	client      ports.ShopifyClient
	metrics     ports.SyncMetrics
	logger      zerolog.Logger
	concurrency int
}

// NewCustomerSyncService creates a new customer sync service.
// concurrency bounds the per-customer calls of SyncBetweenShops; values below 1 mean sequential.
func NewCustomerSyncService(
	client ports.ShopifyClient,
	metrics ports.SyncMetrics,
	logger zerolog.Logger,
	concurrency int,
) *CustomerSyncService {
	if concurrency < 1 {
		concurrency = 1
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &CustomerSyncService{
		client:      client,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

// DecodeCustomers parses the JSON array posted by the customer table
func DecodeCustomers(payload string) ([]domain.Customer, error) {
	var customers []domain.Customer
	if err := json.Unmarshal([]byte(payload), &customers); err != nil {
		return nil, domain.ValidationFailed("customers", "Invalid customer data.")
	}
	return customers, nil
}

// ListCustomers reads the first page of customers from a store
func (s *CustomerSyncService) ListCustomers(ctx context.Context, store domain.AdminSession) ([]domain.Customer, error) {
	var resp customersResponse
	if err := s.client.GraphQL(ctx, store.Shop, store.AccessToken, customerListQuery, nil, &resp); err != nil {
		s.logger.Error().Err(err).Str("shop", store.Shop).Msg("Failed to fetch customers")
		return nil, fmt.Errorf("failed to fetch customers: %w", err)
	}

	customers := make([]domain.Customer, 0, len(resp.Customers.Edges))
	for _, edge := range resp.Customers.Edges {
		customers = append(customers, edge.Node.toDomain())
	}
	return customers, nil
}

// ImportCustomers creates the given customers in dest with a single batched mutation.
// A transport failure or a top-level GraphQL error fails the whole batch and no results are returned;
// otherwise each customer gets its own result from its alias.
func (s *CustomerSyncService) ImportCustomers(ctx context.Context, dest domain.AdminSession, customers []domain.Customer) ([]domain.SyncResult, error) {
	batch, err := BuildCustomerBatch(customers)
	if err != nil {
		return nil, err
	}

	data := make(map[string]*customerCreatePayload, len(batch.Aliases))
	if err := s.client.GraphQL(ctx, dest.Shop, dest.AccessToken, batch.Query, batch.Variables, &data); err != nil {
		s.metrics.ObserveBatchFailure(FlowBatchImport)
		s.logger.Error().
			Err(err).
			Str("shop", dest.Shop).
			Int("customers", len(customers)).
			Msg("Customer import batch failed")
		return nil, fmt.Errorf("failed to import customers: %w", err)
	}

	results := make([]domain.SyncResult, 0, len(customers))
	for i, customer := range customers {
		results = append(results, classify(customer.Email, data[batch.Aliases[i]]))
	}

	s.metrics.ObserveResults(FlowBatchImport, results)
	s.logger.Info().
		Str("shop", dest.Shop).
		Int("customers", len(customers)).
		Int("imported", countSuccesses(results)).
		Msg("Customer import batch completed")

	return results, nil
}

// SyncBetweenShops reads the first page of customers from source and creates each of them in dest,
// one mutation per customer. userErrors and GraphQL-level rejections are recorded for that customer only;
// a transport or non-2xx failure on any creation fails the whole run.
func (s *CustomerSyncService) SyncBetweenShops(ctx context.Context, source, dest domain.AdminSession) (*domain.SyncSummary, error) {
	var resp customersResponse
	if err := s.client.GraphQL(ctx, source.Shop, source.AccessToken, customerPullQuery, nil, &resp); err != nil {
		s.metrics.ObserveBatchFailure(FlowShopPull)
		s.logger.Error().Err(err).Str("source", source.Shop).Msg("Failed to read customers from source shop")
		return nil, fmt.Errorf("failed to read source customers: %w", err)
	}

	results := make([]domain.SyncResult, len(resp.Customers.Edges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, edge := range resp.Customers.Edges {
		i := i
		customer := edge.Node.toDomain()
		g.Go(func() error {
			result, err := s.createCustomer(gctx, dest, customer)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.ObserveBatchFailure(FlowShopPull)
		s.logger.Error().
			Err(err).
			Str("source", source.Shop).
			Str("destination", dest.Shop).
			Msg("Shop-to-shop customer sync aborted")
		return nil, fmt.Errorf("failed to create customers: %w: %w", ErrDestinationFailed, err)
	}

	s.metrics.ObserveResults(FlowShopPull, results)

	imported := countSuccesses(results)
	s.logger.Info().
		Str("source", source.Shop).
		Str("destination", dest.Shop).
		Int("customers", len(results)).
		Int("imported", imported).
		Msg("Shop-to-shop customer sync completed")

	return &domain.SyncSummary{
		Success:  true,
		Imported: imported,
		Results:  results,
	}, nil
}

// createCustomer returns an error only when dest could not be reached or answered outside GraphQL
func (s *CustomerSyncService) createCustomer(ctx context.Context, dest domain.AdminSession, customer domain.Customer) (domain.SyncResult, error) {
	variables := map[string]interface{}{"input": BuildCustomerInput(customer)}

	var resp customerCreateResponse
	if err := s.client.GraphQL(ctx, dest.Shop, dest.AccessToken, customerCreateMutation, variables, &resp); err != nil {
		var remote *domain.RemoteError
		if !errors.As(err, &remote) || !remote.IsGraphQL() {
			return domain.SyncResult{}, err
		}
		s.logger.Warn().Err(err).Str("shop", dest.Shop).Msg("customerCreate rejected")
		message := "Failed to create customer."
		if len(remote.Messages) > 0 {
			message = strings.Join(remote.Messages, ", ")
		}
		return domain.SyncResult{Email: customer.Email, Success: false, Error: message}, nil
	}

	return classify(customer.Email, resp.CustomerCreate), nil
}

// FilterCustomers keeps the customers whose "first last email" contains query, ignoring case
func FilterCustomers(customers []domain.Customer, query string) []domain.Customer {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return customers
	}

	filtered := make([]domain.Customer, 0, len(customers))
	for _, c := range customers {
		haystack := strings.ToLower(strings.Join([]string{c.FirstName, c.LastName, c.Email}, " "))
		if strings.Contains(haystack, query) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func countSuccesses(results []domain.SyncResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

type nopMetrics struct{}

func (nopMetrics) ObserveResults(string, []domain.SyncResult) {}
func (nopMetrics) ObserveBatchFailure(string)                 {}
