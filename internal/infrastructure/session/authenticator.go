package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-customer-sync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// CredentialLookup resolves a shop to its stored credentials
type CredentialLookup interface {
	GetShopCredentials(ctx context.Context, shop string) (*domain.ShopCredential, error)
}

// Authenticator resolves the home store of a request.
// It accepts an App Bridge session token (Authorization: Bearer) or the home session cookie.
type Authenticator struct {
	store       *Store
	credentials CredentialLookup
	apiKey      string
	apiSecret   []byte
	logger      zerolog.Logger
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(store *Store, credentials CredentialLookup, apiKey, apiSecret string, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		store:       store,
		credentials: credentials,
		apiKey:      apiKey,
		apiSecret:   []byte(apiSecret),
		logger:      logger,
	}
}

type appBridgeClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// Authenticate returns the home store of r with its stored access token
func (a *Authenticator) Authenticate(r *http.Request) (*domain.AdminSession, error) {
	shop, err := a.shopFromRequest(r)
	if err != nil {
		return nil, err
	}

	credential, err := a.credentials.GetShopCredentials(r.Context(), shop)
	if err != nil {
		return nil, fmt.Errorf("failed to load home store credentials: %w", err)
	}
	if credential == nil || credential.AccessToken == "" {
		return nil, domain.Unauthorized("Store is not installed.")
	}

	return &domain.AdminSession{Shop: credential.Shop, AccessToken: credential.AccessToken}, nil
}

func (a *Authenticator) shopFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return a.verifySessionToken(strings.TrimPrefix(header, "Bearer "))
	}
	if shop := a.store.GetHomeShop(r); shop != "" {
		return shop, nil
	}
	return "", domain.Unauthorized("Authentication required.")
}

// verifySessionToken validates an App Bridge session token and returns the shop in its dest claim
func (a *Authenticator) verifySessionToken(raw string) (string, error) {
	var c appBridgeClaims
	_, err := jwt.ParseWithClaims(
		raw,
		&c,
		func(token *jwt.Token) (any, error) {
			return a.apiSecret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(a.apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(a.store.now),
	)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Rejected session token")
		return "", domain.Unauthorized("Invalid session token.")
	}

	dest, err := url.Parse(c.Dest)
	if err != nil || dest.Host == "" {
		return "", domain.Unauthorized("Invalid session token.")
	}
	return dest.Host, nil
}

// RequireAdmin authenticates the home store and stores it in the request context.
// Unauthenticated page loads are sent to the OAuth install when the shop is known.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := a.Authenticate(r)
		if err != nil {
			a.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithAdminSession(r.Context(), admin)))
	})
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, domain.ErrUnauthorized) {
		a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Authentication failed."}`))
		return
	}

	shop := r.URL.Query().Get("shop")
	if shop == "" {
		shop = a.store.GetHomeShop(r)
	}
	if r.Method == http.MethodGet && shop != "" {
		http.Redirect(w, r, "/auth?shop="+url.QueryEscape(shop), http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
}
