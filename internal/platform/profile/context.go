package profile

import "context"

type contextKey string

const profileContextKey contextKey = "github.com/lumen-optics/storefront/internal/platform/profile/id"

// WithID returns a context carrying the client profile id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, profileContextKey, id)
}

// FromContext extracts the client profile id from the context.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(profileContextKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
