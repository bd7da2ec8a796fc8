package globals

import "context"

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"
const UsernameKey ContextKey = "username"

// WithUser returns ctx carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserID returns the authenticated user id of ctx, or "" when there is none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}
