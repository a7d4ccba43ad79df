// Package output publishes readings on a message bus.
package output

import "context"

// Output is a message bus connection. Implementations live in subpackages.
type Output interface {
	Connected() bool
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload []byte, retained bool) error
	Close() error
}
