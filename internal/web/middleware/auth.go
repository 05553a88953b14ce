package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Identity is the authenticated caller of an attendance or registration
// request. The matching pipeline treats the ID as opaque; Name is only a
// display label.
type Identity struct {
	ID   int64
	Name string
}

// ErrUnknownToken is returned by resolvers for tokens they do not recognize.
var ErrUnknownToken = errors.New("unknown token")

// IdentityResolver turns a bearer token into the claimed identity. Login and
// token issuance live outside this service; the resolver is the seam where a
// real identity provider plugs in.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

type identityCtxKey struct{}

// SetIdentityInContext stores the resolved identity in the request context.
func SetIdentityInContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext retrieves the identity set by RequireIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// RequireIdentity returns middleware that resolves the Authorization bearer
// token and injects the identity into the request context. Requests without a
// resolvable token get 401.
func RequireIdentity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// StaticResolver resolves tokens from a fixed in-memory map. It backs small
// deployments and tests; anything bigger should implement IdentityResolver
// against its own identity provider.
type StaticResolver struct {
	tokens map[string]Identity
}

// NewStaticResolver creates a resolver over a fixed token map.
func NewStaticResolver(tokens map[string]Identity) *StaticResolver {
	return &StaticResolver{tokens: tokens}
}

// Resolve implements IdentityResolver.
func (s *StaticResolver) Resolve(_ context.Context, token string) (Identity, error) {
	id, ok := s.tokens[token]
	if !ok {
		return Identity{}, ErrUnknownToken
	}
	return id, nil
}

// ParseStaticTokens parses the AUTH_TOKENS env format:
// "token:id:name,token:id:name". Names may not contain ':' or ','.
func ParseStaticTokens(raw string) (map[string]Identity, error) {
	tokens := make(map[string]Identity)
	if strings.TrimSpace(raw) == "" {
		return tokens, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, errors.New("auth token entry must be token:id:name")
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, errors.New("auth token entry has non-numeric id")
		}
		tokens[parts[0]] = Identity{ID: id, Name: parts[2]}
	}
	return tokens, nil
}
