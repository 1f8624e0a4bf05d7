// Package reqid tags a request context with a correlation id.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header carries a caller supplied request id.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent with a fresh random request ID stored.
// It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(parent, key{}, id), id
}

// FromHeader reuses value as the request ID when it is a UUID and generates
// a new one otherwise.
func FromHeader(parent context.Context, value string) (context.Context, string) {
	if id, err := uuid.Parse(value); err == nil {
		s := id.String()
		return context.WithValue(parent, key{}, s), s
	}
	return NewContext(parent)
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
