package draft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

func permServer(t *testing.T, cred pdr.Credential, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/auth/_perm/") {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cred)
	}))
}

func TestAuthorizeEditingGrantsStore(t *testing.T) {
	srv := permServer(t, pdr.Credential{UserID: "anon1", Token: "tok123"}, http.StatusOK)
	defer srv.Close()

	b := NewHTTPBroker(srv.URL, "https://data.example.org/od/id/x", nil, nil)
	store, err := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if err != nil {
		t.Fatalf("AuthorizeEditing failed: %v", err)
	}
	if store == nil {
		t.Fatalf("expected a bound store")
	}
	if !b.IsAuthorized() {
		t.Fatalf("broker should hold the token")
	}
	hs, ok := store.(*HTTPStore)
	if !ok || hs.ResourceID() != "mds2-2106" {
		t.Fatalf("store not bound to the resource: %#v", store)
	}
}

func TestAuthorizeEditingAuthenticatedButDenied(t *testing.T) {
	srv := permServer(t, pdr.Credential{UserID: "anon1"}, http.StatusOK)
	defer srv.Close()

	b := NewHTTPBroker(srv.URL, "https://data.example.org/od/id/x", nil, nil)
	store, err := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if err != nil {
		t.Fatalf("denial must not be an error: %v", err)
	}
	if store != nil {
		t.Fatalf("denied authorization must yield a nil store")
	}
	if b.IsAuthorized() {
		t.Fatalf("IsAuthorized must remain false after a denial")
	}
}

func TestAuthorizeEditingUnauthenticatedRedirects(t *testing.T) {
	srv := permServer(t, pdr.Credential{}, http.StatusOK)
	defer srv.Close()

	var navigated string
	nav := NavigatorFunc(func(u string) { navigated = u })

	b := NewHTTPBroker(srv.URL, "https://data.example.org/od/id/x", nav, nil)
	_, err := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if err != ErrLoginRedirect {
		t.Fatalf("expected ErrLoginRedirect, got %v", err)
	}

	if !strings.Contains(navigated, "/saml/login?redirectTo=") {
		t.Fatalf("unexpected login destination %q", navigated)
	}
	u, err := url.Parse(navigated)
	if err != nil {
		t.Fatalf("bad login url: %v", err)
	}
	back, err := url.Parse(u.Query().Get("redirectTo"))
	if err != nil {
		t.Fatalf("bad return url: %v", err)
	}
	if back.Query().Get(EditModeParam) != "true" {
		t.Fatalf("return url missing the resume marker: %q", navigated)
	}
}

func TestAuthorizeEditingPermNotFoundRedirects(t *testing.T) {
	srv := permServer(t, pdr.Credential{}, http.StatusNotFound)
	defer srv.Close()

	var navigated string
	b := NewHTTPBroker(srv.URL, "https://data.example.org/od/id/x",
		NavigatorFunc(func(u string) { navigated = u }), nil)

	_, err := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if err != ErrLoginRedirect {
		t.Fatalf("expected ErrLoginRedirect on 404, got %v", err)
	}
	if navigated == "" {
		t.Fatalf("expected a navigation to the login service")
	}
}

func TestAuthorizeEditingServerFailure(t *testing.T) {
	srv := permServer(t, pdr.Credential{}, http.StatusInternalServerError)
	defer srv.Close()

	b := NewHTTPBroker(srv.URL, "https://data.example.org/od/id/x", nil, nil)
	_, err := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if KindOf(err) != KindSystem {
		t.Fatalf("expected a system error, got %v", err)
	}
}

func TestAuthorizeEditingReusesHeldToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pdr.Credential{UserID: "anon1", Token: "tok123"})
	}))
	defer srv.Close()

	b := NewHTTPBroker(srv.URL, "https://data.example.org/od/id/x", nil, nil)
	ctx := context.Background()
	if _, err := b.AuthorizeEditing(ctx, "mds2-2106"); err != nil {
		t.Fatalf("first authorize failed: %v", err)
	}
	if _, err := b.AuthorizeEditing(ctx, "mds2-2106"); err != nil {
		t.Fatalf("second authorize failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one permission round trip, got %d", calls)
	}
}

func TestLocalBrokerSeededRecords(t *testing.T) {
	seeds := map[string]pdr.ResourceRecord{
		"mds2-2106": seedRecord(),
	}
	b := NewLocalBroker("dev0", "https://localhost/od/id/x", nil, seeds)

	if !b.IsAuthorized() {
		t.Fatalf("a non-empty static user id is already authorized")
	}
	store, err := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if err != nil {
		t.Fatalf("AuthorizeEditing failed: %v", err)
	}
	rec, err := store.GetDraftMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetDraftMetadata failed: %v", err)
	}
	if rec["title"] != "A" {
		t.Fatalf("seeded record not served: %v", rec["title"])
	}

	// repeated authorization binds the same store
	again, _ := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if again != store {
		t.Fatalf("expected the same store instance on re-authorization")
	}
}

func TestLocalBrokerPseudoRedirect(t *testing.T) {
	var navigated string
	b := NewLocalBroker("", "https://localhost/od/id/x",
		NavigatorFunc(func(u string) { navigated = u }), nil)

	_, err := b.AuthorizeEditing(context.Background(), "mds2-2106")
	if err != ErrLoginRedirect {
		t.Fatalf("expected ErrLoginRedirect, got %v", err)
	}
	if _, present := ConsumeEditMarker(navigated); !present {
		t.Fatalf("pseudo-redirect target lacks the resume marker: %q", navigated)
	}
}

func TestEditMarkerRoundTrip(t *testing.T) {
	raw := "https://data.example.org/od/id/mds2-2106?foo=bar"
	marked := AddEditMarker(raw)
	clean, present := ConsumeEditMarker(marked)
	if !present {
		t.Fatalf("marker not detected in %q", marked)
	}
	u, _ := url.Parse(clean)
	if u.Query().Get(EditModeParam) != "" {
		t.Fatalf("marker not stripped: %q", clean)
	}
	if u.Query().Get("foo") != "bar" {
		t.Fatalf("unrelated query lost: %q", clean)
	}

	if _, present := ConsumeEditMarker(raw); present {
		t.Fatalf("marker falsely detected in %q", raw)
	}
}
