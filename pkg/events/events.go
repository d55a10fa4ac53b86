package events

import (
	"time"

	"github.com/memwarden/agent/pkg/recovery"
	"github.com/memwarden/agent/pkg/snapshot"
)

// Event is the base interface for everything the monitor publishes to the
// sinks.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// EventType represents the type of event
type EventType string

const (
	EventTypeSnapshot EventType = "snapshot"
	EventTypeRecovery EventType = "recovery"
	EventTypeError    EventType = "error"
)

// BaseEvent provides common event fields
type BaseEvent struct {
	EventTimestamp time.Time
	EventType      EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTimestamp
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

// SnapshotEvent carries a memory snapshot that crossed the pressure floor
type SnapshotEvent struct {
	BaseEvent
	Snapshot snapshot.Snapshot
}

func NewSnapshotEvent(snap snapshot.Snapshot) SnapshotEvent {
	return SnapshotEvent{
		BaseEvent: BaseEvent{EventTimestamp: time.Now(), EventType: EventTypeSnapshot},
		Snapshot:  snap,
	}
}

// RecoveryEvent carries the outcomes of one recovery pass together with the
// snapshot that triggered it
type RecoveryEvent struct {
	BaseEvent
	Trigger  snapshot.Snapshot
	Outcomes []recovery.Outcome
}

func NewRecoveryEvent(trigger snapshot.Snapshot, outcomes []recovery.Outcome) RecoveryEvent {
	return RecoveryEvent{
		BaseEvent: BaseEvent{EventTimestamp: time.Now(), EventType: EventTypeRecovery},
		Trigger:   trigger,
		Outcomes:  outcomes,
	}
}

// ErrorPayload describes a failure inside the monitoring loop
type ErrorPayload struct {
	ErrorMessage string `json:"error_message"`
	ErrorType    string `json:"error_type"`
	Timestamp    string `json:"timestamp"`
}

// ErrorEvent for error reporting
type ErrorEvent struct {
	BaseEvent
	Payload ErrorPayload
}

func NewErrorEvent(payload ErrorPayload) ErrorEvent {
	return ErrorEvent{
		BaseEvent: BaseEvent{EventTimestamp: time.Now(), EventType: EventTypeError},
		Payload:   payload,
	}
}
