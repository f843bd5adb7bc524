package model

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a Job.
type Status int

const (
	// StatusQueued means the job is waiting for a free worker.
	StatusQueued Status = iota
	// StatusRunning means a worker has claimed the job and the engine is running.
	StatusRunning
	// StatusCompleted means the engine returned without error.
	StatusCompleted
	// StatusFailed means directory setup or the engine failed.
	StatusFailed
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid job status transition")

var allowedTransitions = map[Status]map[Status]bool{
	StatusQueued:  {StatusRunning: true},
	StatusRunning: {StatusCompleted: true, StatusFailed: true},
}

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so statuses encode as names.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status name as produced by String.
func ParseStatus(name string) (Status, error) {
	for _, s := range []Status{StatusQueued, StatusRunning, StatusCompleted, StatusFailed} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown job status %q", name)
}

// IsTerminal reports whether no further transitions can happen.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}
