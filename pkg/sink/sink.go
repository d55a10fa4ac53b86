package sink

import (
	"context"

	"github.com/memwarden/agent/pkg/events"
)

// Sink processes events published by the monitor
type Sink interface {
	// Process handles an incoming event
	Process(ctx context.Context, event events.Event) error

	// Name returns the sink identifier
	Name() string

	// Close any resources that need cleanup
	Close() error
}
