package pdr

import (
	"time"
)

// Well-known record properties.
const (
	KeyID             = "@id"
	KeyTitle          = "title"
	KeyUpdateDetails  = "_updateDetails"
	KeyEditStatus     = "_editStatus"
	KeyReleaseHistory = "releaseHistory"
)

// EditStatusDone marks a draft whose editing session has been closed.
const EditStatusDone = "done"

// ResourceRecord is the metadata document being viewed or edited: an
// open-ended JSON object keyed by property name. It always carries an
// identifier under KeyID and normally a title under KeyTitle.
type ResourceRecord map[string]any

// Credential is the authorization state for an editing session.
// A non-empty UserID with an empty Token means the user is authenticated
// but not authorized to edit; both empty means not authenticated.
type Credential struct {
	UserID string `json:"userId,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Authenticated reports whether the user's identity is known.
func (c Credential) Authenticated() bool {
	return c.UserID != ""
}

// Authorized reports whether an edit token is held.
func (c Credential) Authorized() bool {
	return c.Token != ""
}

// UpdateStamp records who last changed the draft and when.
type UpdateStamp struct {
	UserID string    `json:"userId"`
	When   time.Time `json:"when"`
}

// UserDetails identifies the editing user inside an update-history entry.
type UserDetails struct {
	UserID string `json:"userId"`
}

// UpdateDetail is one entry of the record's update-history list, stored
// under KeyUpdateDetails. The server appends one entry per accepted patch.
type UpdateDetail struct {
	UserDetails UserDetails `json:"_userDetails"`
	UpdateDate  string      `json:"_updateDate"`
}

// ReleaseDescriptor is one entry of a record's release history: an issued
// version of the resource and where it lives.
type ReleaseDescriptor struct {
	Version  string `json:"version"`
	Issued   string `json:"issued,omitempty"`
	ID       string `json:"@id,omitempty"`
	Location string `json:"location,omitempty"`
}
