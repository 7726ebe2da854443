package profile

import (
	"crypto/rand"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/lumen-optics/storefront/internal/platform/observability"
)

const maxProfileIDLength = 64

// Middleware resolves the client profile id for a request. It checks the named
// header first, then the named cookie, and mints a fresh ULID when neither is
// present. The resolved id is placed on the request context and echoed back on
// the response so new clients can persist it.
type Middleware struct {
	header string
	cookie string
	mint   func() string
}

// NewMiddleware builds a profile middleware for the given header and cookie names.
func NewMiddleware(header, cookie string) *Middleware {
	return &Middleware{
		header: header,
		cookie: cookie,
		mint: func() string {
			return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
		},
	}
}

// Handler wraps next with profile resolution.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sanitizeProfileID(r.Header.Get(m.header))
		if id == "" {
			if c, err := r.Cookie(m.cookie); err == nil {
				id = sanitizeProfileID(c.Value)
			}
		}

		minted := false
		if id == "" {
			id = m.mint()
			minted = true
		}

		w.Header().Set(m.header, id)
		if minted {
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := WithID(r.Context(), id)
		logger := observability.FromContext(ctx).With(zap.String("profile_id", observability.SanitizeProfileID(id)))
		ctx = observability.WithLogger(ctx, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sanitizeProfileID keeps ids to a safe alphabet so they can double as storage keys.
func sanitizeProfileID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxProfileIDLength {
		return ""
	}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return ""
		}
	}
	return trimmed
}
