// Package events provides an event system for task lifecycle and run progress notifications.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// EventRunStart is emitted when a benchmark run begins
	EventRunStart EventType = "run_start"
	// EventRunProgress is emitted periodically while a run is in progress
	EventRunProgress EventType = "run_progress"
	// EventRunComplete is emitted when a run finishes
	EventRunComplete EventType = "run_complete"
	// EventMismatch is emitted when Finish returns a result that differs from the expected one
	EventMismatch EventType = "mismatch"
	// EventRejected is emitted when Execute refuses work
	EventRejected EventType = "rejected"
)

// Event represents a task or run event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Run       string    `json:"run"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Mode       string  `json:"mode,omitempty"`
	Workers    int     `json:"workers,omitempty"`
	Iteration  uint64  `json:"iteration,omitempty"`
	Completed  uint64  `json:"completed,omitempty"`
	Throughput float64 `json:"throughput,omitempty"`
	Expected   string  `json:"expected,omitempty"`
	Got        string  `json:"got,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// NewRunStartEvent creates a new run start event
func NewRunStartEvent(run, mode string, workers int) Event {
	return Event{
		Type:      EventRunStart,
		Timestamp: time.Now(),
		Run:       run,
		Data: EventData{
			Mode:    mode,
			Workers: workers,
		},
	}
}

// NewRunProgressEvent creates a run progress event
func NewRunProgressEvent(run string, completed uint64, throughput float64) Event {
	return Event{
		Type:      EventRunProgress,
		Timestamp: time.Now(),
		Run:       run,
		Data: EventData{
			Completed:  completed,
			Throughput: throughput,
		},
	}
}

// NewRunCompleteEvent creates a run complete event
func NewRunCompleteEvent(run string, completed uint64, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventRunComplete,
		Timestamp: time.Now(),
		Run:       run,
		Data: EventData{
			Completed: completed,
			Error:     errMsg,
		},
	}
}

// NewMismatchEvent creates a mismatch event
func NewMismatchEvent(run string, iteration uint64, expected, got string) Event {
	return Event{
		Type:      EventMismatch,
		Timestamp: time.Now(),
		Run:       run,
		Data: EventData{
			Iteration: iteration,
			Expected:  expected,
			Got:       got,
		},
	}
}

// NewRejectedEvent creates a rejected event
func NewRejectedEvent(run string, iteration uint64) Event {
	return Event{
		Type:      EventRejected,
		Timestamp: time.Now(),
		Run:       run,
		Data: EventData{
			Iteration: iteration,
		},
	}
}
