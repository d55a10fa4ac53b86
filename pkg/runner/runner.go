package runner

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/memwarden/agent/pkg/monitor"
	"github.com/memwarden/agent/pkg/sink"
)

// Run starts the monitor loop and dispatches its events to the sinks until
// the context is cancelled. A failing sink is logged and the remaining
// sinks still see the event.
func Run(ctx context.Context, m *monitor.Monitor, sinks []sink.Sink, interval time.Duration, logger *log.Logger) error {
	m.Start(interval)
	defer m.Stop()

	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logger.Errorf("[%s] close error: %v", s.Name(), err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-m.Events():
			for _, s := range sinks {
				if err := s.Process(ctx, event); err != nil {
					logger.Errorf("[%s] failed to process %s event: %v", s.Name(), event.Type(), err)
				}
			}
		}
	}
}
