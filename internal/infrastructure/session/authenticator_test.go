package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopify-customer-sync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCredentials struct {
	byShop map[string]*domain.ShopCredential
	err    error
}

func (s stubCredentials) GetShopCredentials(_ context.Context, shop string) (*domain.ShopCredential, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byShop[shop], nil
}

func newTestAuthenticator(t *testing.T, creds stubCredentials) (*Authenticator, *Store) {
	t.Helper()
	store := newTestStore(t)
	return NewAuthenticator(store, creds, "api-key", "api-secret", zerolog.Nop()), store
}

func installed() stubCredentials {
	return stubCredentials{byShop: map[string]*domain.ShopCredential{
		"home.myshopify.com": {ID: "id-1", Shop: "home.myshopify.com", AccessToken: "shpat_home"},
	}}
}

func sessionToken(t *testing.T, secret, aud, dest string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, appBridgeClaims{
		Dest: dest,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    dest + "/admin",
			Audience:  jwt.ClaimStrings{aud},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticate_SessionToken(t *testing.T) {
	auth, _ := newTestAuthenticator(t, installed())

	r := httptest.NewRequest(http.MethodPost, "/app", nil)
	r.Header.Set("Authorization", "Bearer "+sessionToken(t, "api-secret", "api-key", "https://home.myshopify.com", time.Now().Add(time.Minute)))

	admin, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, &domain.AdminSession{Shop: "home.myshopify.com", AccessToken: "shpat_home"}, admin)
}

func TestAuthenticate_RejectedTokens(t *testing.T) {
	tests := map[string]string{
		"wrong secret":   sessionToken(t, "other-secret", "api-key", "https://home.myshopify.com", time.Now().Add(time.Minute)),
		"wrong audience": sessionToken(t, "api-secret", "other-app", "https://home.myshopify.com", time.Now().Add(time.Minute)),
		"expired":        sessionToken(t, "api-secret", "api-key", "https://home.myshopify.com", time.Now().Add(-time.Minute)),
		"no dest host":   sessionToken(t, "api-secret", "api-key", "home", time.Now().Add(time.Minute)),
		"garbage":        "not-a-jwt",
	}

	auth, _ := newTestAuthenticator(t, installed())
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/app", nil)
			r.Header.Set("Authorization", "Bearer "+token)
			_, err := auth.Authenticate(r)
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		})
	}
}

func TestAuthenticate_Cookie(t *testing.T) {
	auth, store := newTestAuthenticator(t, installed())

	rec := httptest.NewRecorder()
	require.NoError(t, store.CommitHome(rec, "home.myshopify.com"))

	admin, err := auth.Authenticate(carry(rec))
	require.NoError(t, err)
	assert.Equal(t, "shpat_home", admin.AccessToken)
}

func TestAuthenticate_NotInstalled(t *testing.T) {
	auth, store := newTestAuthenticator(t, stubCredentials{})

	rec := httptest.NewRecorder()
	require.NoError(t, store.CommitHome(rec, "home.myshopify.com"))

	_, err := auth.Authenticate(carry(rec))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.Equal(t, "Store is not installed.", err.Error())
}

func TestRequireAdmin(t *testing.T) {
	var seen *domain.AdminSession
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = domain.GetAdminSessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("authenticated", func(t *testing.T) {
		auth, store := newTestAuthenticator(t, installed())
		rec := httptest.NewRecorder()
		require.NoError(t, store.CommitHome(rec, "home.myshopify.com"))

		w := httptest.NewRecorder()
		auth.RequireAdmin(next).ServeHTTP(w, carry(rec))
		assert.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "home.myshopify.com", seen.Shop)
	})

	t.Run("page load with shop goes to install", func(t *testing.T) {
		auth, _ := newTestAuthenticator(t, stubCredentials{})
		w := httptest.NewRecorder()
		auth.RequireAdmin(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app?shop=new.myshopify.com", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth?shop=new.myshopify.com", w.Header().Get("Location"))
	})

	t.Run("api call is 401", func(t *testing.T) {
		auth, _ := newTestAuthenticator(t, stubCredentials{})
		w := httptest.NewRecorder()
		auth.RequireAdmin(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/app/customers", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("lookup failure is 500", func(t *testing.T) {
		auth, store := newTestAuthenticator(t, stubCredentials{err: errors.New("db down")})
		rec := httptest.NewRecorder()
		require.NoError(t, store.CommitHome(rec, "home.myshopify.com"))

		w := httptest.NewRecorder()
		auth.RequireAdmin(next).ServeHTTP(w, carry(rec))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
