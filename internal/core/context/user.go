package context

import "context"

type userIDKey struct{}

// WithUserID stores the operator's user ID in the context. Ownership of
// staged batches and the operator stamp on vouchers both key off it.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// GetUserID returns the operator's user ID from the context, or "" if absent.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
