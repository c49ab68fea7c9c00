// Package auth resolves bearer tokens against the external auth service.
// Authentication itself (sign-up, sessions, token issuance) lives outside
// this service; all we do here is ask the auth service who a token belongs
// to and put the verified user id on the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/inspira/dailyquote/internal/config"
)

// ErrUnauthenticated means the request carried no verifiable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier resolves a bearer token to a user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// userInfo is the auth service's user payload. Only the id matters here.
type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// HTTPVerifier verifies tokens against a GoTrue-style user endpoint.
type HTTPVerifier struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewHTTPVerifier creates a verifier from configuration.
func NewHTTPVerifier(cfg config.AuthConfig) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

// Verify asks the auth service for the user behind the token.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.serviceKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("auth service error (status %d): %s", resp.StatusCode, string(body))
	}

	var user userInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("parsing user response: %w", err)
	}
	if user.ID == "" {
		return "", ErrUnauthenticated
	}
	return user.ID, nil
}

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the verified user id from the request context, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a context carrying the verified user id. Exported for
// handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// BearerToken extracts the bearer token from an Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireUser is middleware that verifies the bearer token and injects the
// user id into the request context. Requests without a verifiable identity
// get a 401.
func RequireUser(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			userID, err := v.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":"unauthorized","code":"unauthenticated"}`))
}
