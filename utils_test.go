package pdr

import (
	"testing"
	"time"
)

func TestCloneIsIndependent(t *testing.T) {
	record := ResourceRecord{
		KeyID: "ark:/88434/mds2-2106",
		"contactPoint": map[string]any{
			"fn": "Ava One",
		},
	}

	clone := record.Clone()
	clone["contactPoint"].(map[string]any)["fn"] = "Someone Else"

	if record["contactPoint"].(map[string]any)["fn"] != "Ava One" {
		t.Errorf("mutation of clone leaked into the source record")
	}
}

func TestCloneNil(t *testing.T) {
	var record ResourceRecord
	if record.Clone() != nil {
		t.Errorf("clone of nil record should be nil")
	}
}

func TestLastUpdateParsesHistory(t *testing.T) {
	record := ResourceRecord{
		KeyUpdateDetails: []any{
			map[string]any{
				"_userDetails": map[string]any{"userId": "ava1"},
				"_updateDate":  "2025-02-03 10:20:30",
			},
			map[string]any{
				"_userDetails": map[string]any{"userId": "nist0"},
				"_updateDate":  "2025-06-07T08:09:10Z",
			},
		},
	}

	stamp := record.LastUpdate()
	if stamp == nil {
		t.Fatal("expected a stamp")
	}
	if stamp.UserID != "nist0" {
		t.Errorf("UserID = %q, want the latest entry's user", stamp.UserID)
	}
	want := time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)
	if !stamp.When.Equal(want) {
		t.Errorf("When = %v, want %v", stamp.When, want)
	}
}

func TestLastUpdateMissingHistory(t *testing.T) {
	record := ResourceRecord{KeyID: "x"}
	if record.LastUpdate() != nil {
		t.Errorf("expected nil stamp without update history")
	}
}

func TestAppendUpdateDetailRoundTrips(t *testing.T) {
	record := ResourceRecord{}
	when := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	record.AppendUpdateDetail("ava1", when)

	stamp := record.LastUpdate()
	if stamp == nil {
		t.Fatal("expected a stamp after append")
	}
	if stamp.UserID != "ava1" || !stamp.When.Equal(when) {
		t.Errorf("stamp = %+v", stamp)
	}
}

func TestReleasesSkipsMalformedEntries(t *testing.T) {
	record := ResourceRecord{
		KeyReleaseHistory: []any{
			map[string]any{"version": "1.0.0", "issued": "2024-01-15"},
			"not an object",
			map[string]any{"version": "1.1.0", "issued": "2025-01-15"},
		},
	}

	releases := record.Releases()
	if len(releases) != 2 {
		t.Fatalf("len(releases) = %d, want 2", len(releases))
	}
	if releases[1].Version != "1.1.0" {
		t.Errorf("releases[1].Version = %q", releases[1].Version)
	}
}
