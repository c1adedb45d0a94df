package api

import (
	"context"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// The authenticated client rides in the request context. Role gates read it
// from there and nowhere else.
type ctxKey int

const clientKey ctxKey = iota

// ClientFromContext returns the authenticated client, nil before Authenticate
func ClientFromContext(ctx context.Context) *models.ApiClient {
	client, _ := ctx.Value(clientKey).(*models.ApiClient)
	return client
}

// ContextWithClient attaches the authenticated client
func ContextWithClient(ctx context.Context, client *models.ApiClient) context.Context {
	return context.WithValue(ctx, clientKey, client)
}

// MarksVisible reports whether the caller may see mark values
func MarksVisible(ctx context.Context) bool {
	return ClientFromContext(ctx).CanViewMarks()
}

// actor names the caller in audit logs
func actor(ctx context.Context) string {
	if client := ClientFromContext(ctx); client != nil {
		return client.Name
	}
	return "anonymous"
}
