package domain

import (
	"time"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

// Draft status values.
const (
	DraftStatusActive = "active"
	DraftStatusDone   = "done"
)

// Draft is the server-held editing state of one resource: the committed
// baseline and the in-progress working copy. Discard reverts working to
// baseline; commit promotes working to baseline.
type Draft struct {
	ResourceID string
	Baseline   pdr.ResourceRecord
	Working    pdr.ResourceRecord
	Status     string
	UpdatedAt  time.Time
}

// Closed reports whether the draft's editing session has been closed.
func (d Draft) Closed() bool {
	return d.Status == DraftStatusDone
}

// Permission grants one user edit access to one resource.
type Permission struct {
	ResourceID string
	UserID     string
}

// UpdateEvent is broadcast whenever a draft changes.
type UpdateEvent struct {
	ResourceID string             `json:"resourceId"`
	Action     string             `json:"action"` // updated, discarded, committed, done
	Record     pdr.ResourceRecord `json:"record,omitempty"`
	When       time.Time          `json:"when"`
}

// Update-event actions.
const (
	ActionUpdated   = "updated"
	ActionDiscarded = "discarded"
	ActionCommitted = "committed"
	ActionDone      = "done"
)
