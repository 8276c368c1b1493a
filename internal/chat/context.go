package chat

import "context"

type senderKey struct{}

// WithSender records the user an operation is performed for.
func WithSender(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, senderKey{}, userID)
}

// SenderFrom returns the user recorded by WithSender, or 0.
func SenderFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(senderKey{}).(int64)
	return id
}
