package sink

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/memwarden/agent/pkg/events"
	"github.com/memwarden/agent/pkg/pressure"
)

// LogSink writes events to the agent log. Pressure detections log as
// warnings, successful mitigations as info, strategy errors as errors.
type LogSink struct {
	logger *log.Logger
}

func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Process(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.SnapshotEvent:
		entry := s.logger.WithFields(log.Fields{
			"pressure_level": e.Snapshot.Level.String(),
			"percent_used":   e.Snapshot.PercentUsed,
			"process_rss_mb": e.Snapshot.ProcessRSSMB,
		})
		if e.Snapshot.Level >= pressure.Critical {
			entry.Error("Memory pressure critical")
		} else {
			entry.Warn("Memory pressure detected")
		}
	case events.RecoveryEvent:
		for _, outcome := range e.Outcomes {
			entry := s.logger.WithFields(log.Fields{
				"action":          string(outcome.Action),
				"memory_freed_mb": outcome.MemoryFreedMB,
				"duration":        outcome.Duration.String(),
			})
			if len(outcome.Errors) > 0 {
				entry.WithField("errors", outcome.Errors).Error("Recovery action finished with errors")
			} else {
				entry.Info("Recovery action succeeded")
			}
		}
	case events.ErrorEvent:
		s.logger.WithFields(log.Fields{
			"error_type": e.Payload.ErrorType,
		}).Error(e.Payload.ErrorMessage)
	}
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
