package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// identityHeader carries the caller identity set by a fronting auth proxy.
const identityHeader = "X-User-ID"

// Authenticator resolves the authenticated user for a request. Token
// issuance and session lifecycle live outside this server; deployments
// plug in their identity provider here.
type Authenticator interface {
	// Authenticate returns the user id for the request, or an error when
	// the presented credentials are invalid. An empty id with a nil error
	// means the request is anonymous.
	Authenticate(r *http.Request) (string, error)
}

// ProxyAuthenticator trusts an identity header set by a fronting reverse
// proxy. The server must not be reachable without the proxy in front.
type ProxyAuthenticator struct {
	// Header is the identity header name. Defaults to X-User-ID.
	Header string
}

// Authenticate implements Authenticator.
func (a ProxyAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := a.Header
	if header == "" {
		header = identityHeader
	}
	return r.Header.Get(header), nil
}

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key for the authenticated user ID.
const userIDKey ctxKey = "userID"

// GetUserID returns the authenticated user ID from context.
// Returns a 401 error if the user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

// userIDFromContext returns the authenticated user ID, or "" when anonymous.
func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// setUserID stores the user ID in context.
func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// authMiddleware resolves the request identity and stores it in context.
// Anonymous and failed resolutions continue without a user; handlers use
// GetUserID to reject where authentication is required.
func authMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := auth.Authenticate(r)
			if err != nil || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setUserID(r.Context(), userID)))
		})
	}
}

// ResolveUser adapts the request identity for the SSE handler.
func ResolveUser(r *http.Request) string {
	return userIDFromContext(r.Context())
}
