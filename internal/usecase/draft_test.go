package usecase

import (
	"context"
	"errors"
	"testing"

	pdr "github.com/usnistgov/oar-pdr-sub001"
	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
)

type mockDraftRepo struct {
	drafts map[string]domain.Draft
	saved  int
}

func newMockDraftRepo(seed pdr.ResourceRecord) *mockDraftRepo {
	return &mockDraftRepo{
		drafts: map[string]domain.Draft{
			seed.ID(): {
				ResourceID: seed.ID(),
				Baseline:   seed.Clone(),
				Working:    seed.Clone(),
				Status:     domain.DraftStatusActive,
			},
		},
	}
}

func (m *mockDraftRepo) Get(ctx context.Context, id string) (domain.Draft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return domain.Draft{}, domain.NotFoundError{Resource: "draft"}
	}
	return d, nil
}

func (m *mockDraftRepo) Save(ctx context.Context, d domain.Draft) error {
	m.drafts[d.ResourceID] = d
	m.saved++
	return nil
}

func (m *mockDraftRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.drafts[id]
	return ok, nil
}

type mockPublisher struct {
	events []domain.UpdateEvent
}

func (m *mockPublisher) PublishUpdate(ctx context.Context, ev domain.UpdateEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func testSeed() pdr.ResourceRecord {
	return pdr.ResourceRecord{
		pdr.KeyID:     "mds2-2106",
		"title":       "A",
		"accessLevel": "public",
	}
}

func TestDraftPatchMergesAndStampsHistory(t *testing.T) {
	repo := newMockDraftRepo(testSeed())
	pub := &mockPublisher{}
	uc := NewDraftUsecase(repo, pub)

	rec, err := uc.Patch(context.Background(), "mds2-2106", "anon1", pdr.ResourceRecord{"title": "B"})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if rec["title"] != "B" {
		t.Fatalf("patch not merged: %v", rec["title"])
	}
	if rec["accessLevel"] != "public" {
		t.Fatalf("unrelated field changed: %v", rec["accessLevel"])
	}

	stamp := rec.LastUpdate()
	if stamp == nil || stamp.UserID != "anon1" {
		t.Fatalf("update history not appended: %+v", stamp)
	}

	if len(pub.events) != 1 || pub.events[0].Action != domain.ActionUpdated {
		t.Fatalf("expected one updated event, got %+v", pub.events)
	}
}

func TestDraftPatchRejectsEmpty(t *testing.T) {
	uc := NewDraftUsecase(newMockDraftRepo(testSeed()), nil)

	_, err := uc.Patch(context.Background(), "mds2-2106", "anon1", pdr.ResourceRecord{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDraftPatchUnknownResource(t *testing.T) {
	uc := NewDraftUsecase(newMockDraftRepo(testSeed()), nil)

	_, err := uc.Patch(context.Background(), "nope", "anon1", pdr.ResourceRecord{"title": "B"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestDraftDiscardRevertsToBaseline(t *testing.T) {
	repo := newMockDraftRepo(testSeed())
	uc := NewDraftUsecase(repo, nil)
	ctx := context.Background()

	if _, err := uc.Patch(ctx, "mds2-2106", "anon1", pdr.ResourceRecord{"title": "B"}); err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if _, err := uc.Commit(ctx, "mds2-2106"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := uc.Patch(ctx, "mds2-2106", "anon1", pdr.ResourceRecord{"title": "C"}); err != nil {
		t.Fatalf("second patch failed: %v", err)
	}

	rec, err := uc.Discard(ctx, "mds2-2106")
	if err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	// discard reverts to the committed baseline, not the original
	if rec["title"] != "B" {
		t.Fatalf("discard reverted to %v, want B", rec["title"])
	}
}

func TestDraftDoneClosesSession(t *testing.T) {
	repo := newMockDraftRepo(testSeed())
	uc := NewDraftUsecase(repo, nil)
	ctx := context.Background()

	if _, err := uc.Done(ctx, "mds2-2106"); err != nil {
		t.Fatalf("done failed: %v", err)
	}
	if !repo.drafts["mds2-2106"].Closed() {
		t.Fatalf("draft not marked done")
	}

	_, err := uc.Patch(ctx, "mds2-2106", "anon1", pdr.ResourceRecord{"title": "B"})
	if !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("patch after done: got %v, want session-closed", err)
	}
}

type mockPermRepo struct {
	allowed map[string]bool
}

func (m *mockPermRepo) HasEditPermission(ctx context.Context, userID, resourceID string) (bool, error) {
	return m.allowed[userID+"/"+resourceID], nil
}

type mockIssuer struct{}

func (mockIssuer) IssueEditToken(ctx context.Context, userID, resourceID string) (string, error) {
	return "tok-" + userID + "-" + resourceID, nil
}

func TestPermissionResolve(t *testing.T) {
	drafts := newMockDraftRepo(testSeed())
	perms := &mockPermRepo{allowed: map[string]bool{"anon1/mds2-2106": true}}
	uc := NewPermissionUsecase(drafts, perms, mockIssuer{})
	ctx := context.Background()

	cred, err := uc.Resolve(ctx, "anon1", "mds2-2106")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !cred.Authorized() || cred.UserID != "anon1" {
		t.Fatalf("expected an authorized credential, got %+v", cred)
	}

	cred, err = uc.Resolve(ctx, "anon2", "mds2-2106")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cred.Authorized() || !cred.Authenticated() {
		t.Fatalf("expected authenticated-only credential, got %+v", cred)
	}

	cred, err = uc.Resolve(ctx, "", "mds2-2106")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cred.Authenticated() {
		t.Fatalf("expected empty credential, got %+v", cred)
	}

	_, err = uc.Resolve(ctx, "anon1", "not-tracked")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found for untracked resource, got %v", err)
	}
}
