// Package store persists watches and the observations made while they run.
package store

import (
	"context"
	"fmt"
	"time"
)

// Watch is one run of the build-completion waiter against a template version.
type Watch struct {
	WatchID        string
	VersionID      string
	OrganizationID string
	// Status is the last observed job status, "pending" until the first poll.
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Observation is a single poll result recorded for a watch.
type Observation struct {
	WatchID    string
	VersionID  string
	Status     string
	Error      string
	ObservedAt time.Time
}

// Store defines the interface for persisting watches and their observations.
type Store interface {
	// CreateWatch records a new watch. Creating an existing watch ID is a no-op.
	CreateWatch(ctx context.Context, watch Watch) error

	// RecordObservation appends an observation and moves the watch to its status.
	// A terminal status also sets CompletedAt.
	RecordObservation(ctx context.Context, obs Observation) error

	// GetWatch returns a watch by ID.
	GetWatch(ctx context.Context, watchID string) (*Watch, error)

	// ListObservations returns a watch's observations, oldest first.
	ListObservations(ctx context.Context, watchID string) ([]Observation, error)

	// Close closes the store connection
	Close() error
}

// ErrNotFound is returned when a watch does not exist.
type ErrNotFound struct {
	WatchID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("watch not found: %s", e.WatchID)
}

func isTerminal(status string) bool {
	return status != "pending" && status != "running"
}
