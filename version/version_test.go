package version

import (
	"testing"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

func TestCompareVersionsOrdering(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"2.0", "1.9", 1},
		{"5", "5.0", -1},
		{"8.1", "8.1.5", -1},
		{"5.3.2", "5.3.2rc8", -1},
		{"5.3.2rc12", "5.3.2rc8", 1},
		{"5.3.2rc8", "5.3.2rc8", 0},
		{"1.0.2", "1.0.10", -1},
		{"1.0a", "1.0b", -1},
		{"1.2", "1.2a", -1},
	}

	for _, c := range cases {
		if got := CompareVersions(c.a, c.b); got != c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
		if got := CompareVersions(c.b, c.a); got != -c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.b, c.a, got, -c.want)
		}
	}
}

func TestCompareVersionsReflexive(t *testing.T) {
	samples := []string{"", "1", "1.0", "5.3.2rc8", "10.0.1", "v2"}
	for _, s := range samples {
		if got := CompareVersions(s, s); got != 0 {
			t.Errorf("CompareVersions(%q, %q) = %d, want 0", s, s, got)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2017", "2017-01-01 00:00:00"},
		{"2017-01", "2017-01-01 00:00:00"},
		{"2017-01-01", "2017-01-01 00:00:00"},
		{"2017-12-10T10:01", "2017-12-10 10:01:00"},
		{"2017-12-10T10:01:30", "2017-12-10 10:01:30"},
		{"2017-12-10 10:01:30", "2017-12-10 10:01:30"},
		{"2017-12-10T10:01:30.256", "2017-12-10 10:01:30.256"},
		{"2017Z+05", "2017-01-01 00:00:00"},
		{"2017-12-10T10:01:30Z-02:00", "2017-12-10 10:01:30"},
		{"not a date", "not a date"},
		{"2017-1-1", "2017-1-1"},
	}

	for _, c := range cases {
		if got := NormalizeDate(c.in); got != c.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCompareDatesGranularity(t *testing.T) {
	equal := []string{"2017", "2017-01", "2017-01-01", "2017-01-01 00:00:00"}
	for _, a := range equal {
		for _, b := range equal {
			if got := CompareDates(a, b); got != 0 {
				t.Errorf("CompareDates(%q, %q) = %d, want 0", a, b, got)
			}
		}
	}

	if got := CompareDates("2017-12-10T10:01:30", "2017-12-10 10:01:30"); got != 0 {
		t.Errorf("differently formatted equal instants compared %d, want 0", got)
	}
	if got := CompareDates("2017Z+05", "2017"); got != 0 {
		t.Errorf("zone marker not ignored: got %d, want 0", got)
	}
	if got := CompareDates("2016-12-31", "2017"); got != -1 {
		t.Errorf("CompareDates ordering: got %d, want -1", got)
	}
}

func TestCompareReleases(t *testing.T) {
	older := pdr.ReleaseDescriptor{Version: "1.0.0", Issued: "2017-05-01"}
	newer := pdr.ReleaseDescriptor{Version: "1.1.0", Issued: "2018-02-10"}
	if got := CompareReleases(older, newer); got != -1 {
		t.Errorf("CompareReleases by date: got %d, want -1", got)
	}

	// same day falls back to version order
	a := pdr.ReleaseDescriptor{Version: "1.0.1", Issued: "2018-02-10"}
	c := pdr.ReleaseDescriptor{Version: "1.0.2", Issued: "2018-02-10"}
	if got := CompareReleases(a, c); got != -1 {
		t.Errorf("CompareReleases tie-break by version: got %d, want -1", got)
	}

	// missing dates compare by version alone
	x := pdr.ReleaseDescriptor{Version: "2.0"}
	y := pdr.ReleaseDescriptor{Version: "10.0"}
	if got := CompareReleases(x, y); got != -1 {
		t.Errorf("CompareReleases without dates: got %d, want -1", got)
	}
}

func TestNewest(t *testing.T) {
	history := []pdr.ReleaseDescriptor{
		{Version: "1.0.0", Issued: "2017-05-01"},
		{Version: "1.2.0", Issued: "2019-01-20"},
		{Version: "1.1.0", Issued: "2018-02-10"},
	}
	if got := Newest(history); got != 1 {
		t.Errorf("Newest = %d, want 1", got)
	}
	if got := Newest(nil); got != -1 {
		t.Errorf("Newest(nil) = %d, want -1", got)
	}
}
