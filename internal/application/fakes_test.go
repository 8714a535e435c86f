package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"shopify-customer-sync/internal/domain"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/stretchr/testify/require"
)

type graphqlCall struct {
	Shop      string
	Token     string
	Query     string
	Variables map[string]interface{}
}

// fakeShopifyClient answers GraphQL calls with canned data JSON
type fakeShopifyClient struct {
	mu          sync.Mutex
	calls       []graphqlCall
	respond     func(call graphqlCall) (string, error)
	products    []shopify.Product
	productsErr error
}

func (f *fakeShopifyClient) GraphQL(_ context.Context, shop, token, query string, variables map[string]interface{}, resp interface{}) error {
	call := graphqlCall{Shop: shop, Token: token, Query: query, Variables: variables}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	data, err := f.respond(call)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), resp)
}

func (f *fakeShopifyClient) GetProducts(_ context.Context, _, _ string, _ int) ([]shopify.Product, error) {
	return f.products, f.productsErr
}

func (f *fakeShopifyClient) Calls() []graphqlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]graphqlCall(nil), f.calls...)
}

// inputOf round-trips a variable through JSON so tests see exactly what is sent
func inputOf(t *testing.T, variables map[string]interface{}, name string) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(variables[name])
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type recordingMetrics struct {
	mu       sync.Mutex
	results  map[string][]domain.SyncResult
	failures map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		results:  make(map[string][]domain.SyncResult),
		failures: make(map[string]int),
	}
}

func (m *recordingMetrics) ObserveResults(flow string, results []domain.SyncResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[flow] = append(m.results[flow], results...)
}

func (m *recordingMetrics) ObserveBatchFailure(flow string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[flow]++
}
