package future

import (
	"context"
	"io"
)

// Stream is a lazily produced sequence, such as a subscription source.
// Recv returns io.EOF once the sequence is exhausted.
type Stream interface {
	Recv(ctx context.Context) (any, error)
}

// FromChan adapts a channel to a Stream. Closing ch ends the stream.
func FromChan(ch <-chan any) Stream { return chanStream(ch) }

type chanStream <-chan any

func (s chanStream) Recv(ctx context.Context) (any, error) {
	select {
	case v, ok := <-s:
		if !ok {
			return nil, io.EOF
		}
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
