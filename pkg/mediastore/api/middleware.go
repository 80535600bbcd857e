package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/tendant/simple-media/pkg/mediastore"
)

type contextKey string

const authContextKey contextKey = "mediastore.auth"

// WithRequestAuth extracts the caller's credentials from the request and
// stores them in the context for the handlers. Two forms are accepted: HTTP
// Basic authentication, and an "auth" query parameter carrying the
// base64-encoded "actor:credential" pair.
func WithRequestAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := mediastore.Auth{Resource: r.URL.Path}

		if actor, credential, ok := r.BasicAuth(); ok {
			auth.Actor = actor
			auth.Credential = credential
		} else if param := r.URL.Query().Get("auth"); param != "" {
			if decoded, ok := decodeAuthParam(param); ok {
				if actor, credential, ok := strings.Cut(decoded, ":"); ok {
					auth.Actor = actor
					auth.Credential = strings.TrimSpace(credential)
				}
			}
		}

		ctx := context.WithValue(r.Context(), authContextKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthFromContext returns the credentials extracted by WithRequestAuth.
func AuthFromContext(ctx context.Context) mediastore.Auth {
	auth, _ := ctx.Value(authContextKey).(mediastore.Auth)
	return auth
}

// decodeAuthParam accepts both URL-safe and standard base64, with or
// without padding.
func decodeAuthParam(param string) (string, bool) {
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding, base64.RawURLEncoding,
		base64.StdEncoding, base64.RawStdEncoding,
	} {
		if decoded, err := enc.DecodeString(param); err == nil {
			return string(decoded), true
		}
	}
	return "", false
}
