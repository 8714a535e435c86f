package domain

import "context"

// ExternalSession holds the credentials of a store connected through the login form.
// It lives only in the signed cookie; there is no server-side record.
type ExternalSession struct {
	Shop  string `json:"shop"`
	Token string `json:"token"`
}

// IsZero reports whether the session is missing either half of the credentials
func (s ExternalSession) IsZero() bool {
	return s.Shop == "" || s.Token == ""
}

// AdminSession is the authenticated home store of the current request
type AdminSession struct {
	Shop        string
	AccessToken string
}

type contextKey string

const adminSessionKey contextKey = "admin_session"

// WithAdminSession stores the authenticated home store in the context
func WithAdminSession(ctx context.Context, session *AdminSession) context.Context {
	return context.WithValue(ctx, adminSessionKey, session)
}

// GetAdminSessionFromContext returns the home store set by the auth middleware, or nil
func GetAdminSessionFromContext(ctx context.Context) *AdminSession {
	session, _ := ctx.Value(adminSessionKey).(*AdminSession)
	return session
}
