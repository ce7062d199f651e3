// Package contracts defines the messages exchanged over the broker.
package contracts

import "time"

// Topic names.
const (
	// TopicVersionStatus carries one VersionEvent per observation of a
	// template version build.
	TopicVersionStatus = "provisioner.templateversion.status"

	// TopicWatchRequests carries a WatchRequest each time a watch starts.
	TopicWatchRequests = "provisioner.watch.requests"
)

// VersionEvent is a single observation of a template version build.
// Published to: provisioner.templateversion.status
// Key: {version_id}
type VersionEvent struct {
	EventID        string `json:"event_id"`
	WatchID        string `json:"watch_id"`
	VersionID      string `json:"version_id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	JobID          string `json:"job_id"`

	// Status is the provisioner job status at ObservedAt.
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	QueuePosition int    `json:"queue_position"`

	ObservedAt time.Time `json:"observed_at"`
}

// Terminal reports whether the event's status ends the build.
func (e VersionEvent) Terminal() bool {
	switch e.Status {
	case "pending", "running":
		return false
	}
	return true
}

// WatchRequest announces that a watcher started waiting on a version.
// Published to: provisioner.watch.requests
// Key: {watch_id}
type WatchRequest struct {
	WatchID        string `json:"watch_id"`
	OrganizationID string `json:"organization_id"`
	VersionID      string `json:"version_id"`
	Timestamp      string `json:"timestamp"`
}
