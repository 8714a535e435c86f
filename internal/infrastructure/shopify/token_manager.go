package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var myshopifyDomain = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// TokenManager runs the OAuth install of the home store and yields its offline access token
type TokenManager struct {
	app         goshopify.App
	scopes      []string
	redirectURL string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewTokenManager creates a new token manager.
// redirectURL is the absolute callback URL registered for the app.
func NewTokenManager(apiKey, apiSecret string, scopes []string, redirectURL string, httpClient *http.Client, logger zerolog.Logger) *TokenManager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenManager{
		app: goshopify.App{
			ApiKey:      apiKey,
			ApiSecret:   apiSecret,
			RedirectUrl: redirectURL,
			Scope:       strings.Join(scopes, ","),
		},
		scopes:      scopes,
		redirectURL: redirectURL,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// ValidShopDomain reports whether shop is a bare *.myshopify.com host
func ValidShopDomain(shop string) bool {
	return myshopifyDomain.MatchString(shop)
}

func (tm *TokenManager) config(shop string) *oauth2.Config {
	// Shopify expects scopes comma-separated; oauth2 joins elements with spaces
	return &oauth2.Config{
		ClientID:     tm.app.ApiKey,
		ClientSecret: tm.app.ApiSecret,
		RedirectURL:  tm.redirectURL,
		Scopes:       []string{strings.Join(tm.scopes, ",")},
		Endpoint: oauth2.Endpoint{
			AuthURL:   fmt.Sprintf("https://%s/admin/oauth/authorize", shop),
			TokenURL:  fmt.Sprintf("https://%s/admin/oauth/access_token", shop),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL builds the authorization URL the merchant is sent to
func (tm *TokenManager) AuthCodeURL(shop string, state string) (string, error) {
	if !ValidShopDomain(shop) {
		return "", fmt.Errorf("invalid shop domain %q", shop)
	}

	authURL := tm.config(shop).AuthCodeURL(state)

	tm.logger.Info().
		Str("shop", shop).
		Strs("scopes", tm.scopes).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

// VerifyCallback checks the hmac Shopify signs the callback query with
func (tm *TokenManager) VerifyCallback(u *url.URL) error {
	shop := u.Query().Get("shop")
	if !ValidShopDomain(shop) {
		return fmt.Errorf("invalid shop domain %q", shop)
	}

	ok, err := tm.app.VerifyAuthorizationURL(u)
	if err != nil {
		return fmt.Errorf("failed to verify callback: %w", err)
	}
	if !ok {
		tm.logger.Warn().Str("shop", shop).Msg("OAuth callback hmac mismatch")
		return fmt.Errorf("invalid callback signature")
	}
	return nil
}

// ExchangeToken trades the authorization code for an offline access token
func (tm *TokenManager) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	if !ValidShopDomain(shop) {
		return "", fmt.Errorf("invalid shop domain %q", shop)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, tm.httpClient)
	token, err := tm.config(shop).Exchange(ctx, code)
	if err != nil {
		tm.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange authorization code")
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}

	return token.AccessToken, nil
}
