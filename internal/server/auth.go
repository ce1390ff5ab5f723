package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Authenticator resolves the owner behind a request. Identity itself is
// an external concern; the orchestrator only needs an owner id.
type Authenticator interface {
	OwnerID(r *http.Request) (string, error)
}

var errUnauthenticated = errors.New("missing or unknown auth token")

// TokenAuth maps static bearer tokens to owner ids.
type TokenAuth struct {
	tokens map[string]string
}

func NewTokenAuth(tokens map[string]string) *TokenAuth {
	if tokens == nil {
		tokens = map[string]string{}
	}
	return &TokenAuth{tokens: tokens}
}

func (a *TokenAuth) OwnerID(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errUnauthenticated
	}

	owner, ok := a.tokens[token]
	if !ok {
		return "", errUnauthenticated
	}
	return owner, nil
}

type ownerKey struct{}

// requireAuth rejects unauthenticated requests before any orchestration
// logic runs and stashes the owner id in the request context.
func requireAuth(auth Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := auth.OwnerID(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	}
}

func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
