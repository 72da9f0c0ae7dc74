package monitor

import (
	"context"

	"github.com/arcanalyse/encounter-builder/pkg/publishers"
)

// EventPublisher publishes status transitions downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
