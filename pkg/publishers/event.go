package publishers

import (
	"time"

	"github.com/arcanalyse/encounter-builder/internal/domain"
)

// EventStatusChanged is emitted when a target's API status changes.
const EventStatusChanged = "status_changed"

// Event represents the payload published downstream.
type Event struct {
	Type           string          `json:"type"`
	TargetID       string          `json:"target_id"`
	TargetName     string          `json:"target_name"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	CurrentStatus  string          `json:"current_status"`
	Snapshot       domain.Snapshot `json:"snapshot"`
	EmittedAt      time.Time       `json:"emitted_at"`
}

// NewEvent constructs a status change Event for snap. previous is empty on
// the first observation of a target.
func NewEvent(previous string, snap domain.Snapshot) Event {
	return Event{
		Type:           EventStatusChanged,
		TargetID:       snap.TargetID,
		TargetName:     snap.TargetName,
		PreviousStatus: previous,
		CurrentStatus:  snap.Status,
		Snapshot:       snap,
		EmittedAt:      time.Now().UTC(),
	}
}
