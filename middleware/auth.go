package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"myfeedsave/auth"
)

type contextKey string

const AccountIDContextKey contextKey = "accountID"

// TokenVerifier turns a bearer token into an account id
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Auth checks the bearer token and adds the caller's account id to the
// request context
func Auth(tokens TokenVerifier, log logrus.FieldLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "No token provided")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w, "Invalid token format")
				return
			}

			accountID, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				log.WithFields(logrus.Fields{"path": r.URL.Path, "error": err.Error()}).Debug("Token rejected")
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// AccountIDFromContext retrieves the authenticated account id from the
// request context
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDContextKey).(string)
	return id, ok && id != ""
}

// WithAccountID returns a copy of ctx carrying accountID
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, AccountIDContextKey, accountID)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

var _ TokenVerifier = (*auth.Tokens)(nil)
