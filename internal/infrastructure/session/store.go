// Package session keeps the per-browser state of the app in signed cookies.
//
// Three cookies are used:
//   - external_session: shop + token of the store connected through the login form
//   - home_session: the home shop authenticated through OAuth
//   - oauth_state: the state nonce of an OAuth install in progress
//
// Each value is an HS256 JWT signed with the session secret, so no server-side record exists.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"shopify-customer-sync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ExternalCookieName = "external_session"
	HomeCookieName     = "home_session"
	StateCookieName    = "oauth_state"

	issuer   = "shopify-customer-sync"
	stateTTL = 10 * time.Minute
)

// DefaultTTL is used when no session lifetime is configured
const DefaultTTL = 7 * 24 * time.Hour

// Store signs and reads the session cookies
type Store struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewStore creates a cookie store. secure should only be disabled for plain-http local development.
func NewStore(secret string, ttl time.Duration, secure bool) (*Store, error) {
	if len(secret) < 16 {
		return nil, errors.New("session: secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}, nil
}

type externalClaims struct {
	Shop  string `json:"shop"`
	Token string `json:"token"`
	jwt.RegisteredClaims
}

type stateClaims struct {
	State string `json:"state"`
	Shop  string `json:"shop"`
	jwt.RegisteredClaims
}

// GetExternal returns the external session of the request; a missing or invalid cookie yields a zero session
func (s *Store) GetExternal(r *http.Request) domain.ExternalSession {
	var c externalClaims
	if err := s.read(r, ExternalCookieName, &c); err != nil {
		return domain.ExternalSession{}
	}
	return domain.ExternalSession{Shop: c.Shop, Token: c.Token}
}

// CommitExternal writes the external session cookie
func (s *Store) CommitExternal(w http.ResponseWriter, session domain.ExternalSession) error {
	c := externalClaims{
		Shop:             session.Shop,
		Token:            session.Token,
		RegisteredClaims: s.registered("", s.ttl),
	}
	return s.write(w, ExternalCookieName, c, s.ttl)
}

// DestroyExternal clears the external session cookie
func (s *Store) DestroyExternal(w http.ResponseWriter) {
	s.clear(w, ExternalCookieName)
}

// GetHomeShop returns the home shop of the request, or "" when not signed in
func (s *Store) GetHomeShop(r *http.Request) string {
	var c jwt.RegisteredClaims
	if err := s.read(r, HomeCookieName, &c); err != nil {
		return ""
	}
	return c.Subject
}

// CommitHome writes the home session cookie for shop
func (s *Store) CommitHome(w http.ResponseWriter, shop string) error {
	return s.write(w, HomeCookieName, s.registered(shop, s.ttl), s.ttl)
}

// NewState generates an OAuth state nonce bound to shop and stores it in a short-lived cookie
func (s *Store) NewState(w http.ResponseWriter, shop string) (string, error) {
	state := uuid.NewString()
	c := stateClaims{
		State:            state,
		Shop:             shop,
		RegisteredClaims: s.registered("", stateTTL),
	}
	if err := s.write(w, StateCookieName, c, stateTTL); err != nil {
		return "", err
	}
	return state, nil
}

// ConsumeState checks state and shop against the state cookie and clears it
func (s *Store) ConsumeState(w http.ResponseWriter, r *http.Request, state string, shop string) error {
	var c stateClaims
	err := s.read(r, StateCookieName, &c)
	s.clear(w, StateCookieName)
	if err != nil {
		return fmt.Errorf("session: missing oauth state: %w", err)
	}
	if state == "" || c.State != state || c.Shop != shop {
		return errors.New("session: oauth state mismatch")
	}
	return nil
}

func (s *Store) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *Store) write(w http.ResponseWriter, name string, claims jwt.Claims, ttl time.Duration) error {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("session: signing cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite(),
	})
	return nil
}

func (s *Store) read(r *http.Request, name string, claims jwt.Claims) error {
	cookie, err := r.Cookie(name)
	if err != nil {
		return err
	}

	_, err = jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("session: invalid cookie %s: %w", name, err)
	}
	return nil
}

func (s *Store) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite(),
	})
}

// sameSite is None for the embedded admin iframe; browsers reject None without Secure
func (s *Store) sameSite() http.SameSite {
	if s.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
