package publishers

import "context"

// Publisher delivers status events to one sink. Publishers that hold
// connections also implement io.Closer and are released by Fanout.Close.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
