package pdr

import (
	"time"

	"github.com/brunoga/deep"
)

// Clone returns a deep copy of the record. Snapshots handed across
// component boundaries are always clones, never shared references.
func (r ResourceRecord) Clone() ResourceRecord {
	if r == nil {
		return nil
	}
	return deep.MustCopy(r)
}

// ID returns the record identifier, or "" if absent.
func (r ResourceRecord) ID() string {
	return r.stringProp(KeyID)
}

// Title returns the record title, or "" if absent.
func (r ResourceRecord) Title() string {
	return r.stringProp(KeyTitle)
}

func (r ResourceRecord) stringProp(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// updateDateLayouts are the accepted formats of _updateDate values.
var updateDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LastUpdate extracts the most recent update-history entry from the record,
// or nil when the record carries no update history.
func (r ResourceRecord) LastUpdate() *UpdateStamp {
	raw, ok := r[KeyUpdateDetails]
	if !ok {
		return nil
	}
	entries, ok := raw.([]any)
	if !ok || len(entries) == 0 {
		return nil
	}

	last, ok := entries[len(entries)-1].(map[string]any)
	if !ok {
		return nil
	}

	stamp := UpdateStamp{}
	if ud, ok := last["_userDetails"].(map[string]any); ok {
		if id, ok := ud["userId"].(string); ok {
			stamp.UserID = id
		}
	}
	if raw, ok := last["_updateDate"].(string); ok {
		for _, layout := range updateDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				stamp.When = t
				break
			}
		}
	}

	if stamp.UserID == "" && stamp.When.IsZero() {
		return nil
	}
	return &stamp
}

// AppendUpdateDetail records a new update-history entry on the record.
func (r ResourceRecord) AppendUpdateDetail(userID string, when time.Time) {
	entry := map[string]any{
		"_userDetails": map[string]any{"userId": userID},
		"_updateDate":  when.UTC().Format(time.RFC3339),
	}

	entries, _ := r[KeyUpdateDetails].([]any)
	r[KeyUpdateDetails] = append(entries, entry)
}

// Releases parses the record's release history into descriptors. Entries
// that are not objects are skipped.
func (r ResourceRecord) Releases() []ReleaseDescriptor {
	raw, ok := r[KeyReleaseHistory].([]any)
	if !ok {
		return nil
	}

	var releases []ReleaseDescriptor
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		rd := ReleaseDescriptor{}
		rd.Version, _ = m["version"].(string)
		rd.Issued, _ = m["issued"].(string)
		rd.ID, _ = m["@id"].(string)
		rd.Location, _ = m["location"].(string)
		releases = append(releases, rd)
	}
	return releases
}
