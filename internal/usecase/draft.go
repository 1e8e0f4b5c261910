package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	pdr "github.com/usnistgov/oar-pdr-sub001"
	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
)

var tracer = otel.Tracer("usecase")

// DraftUsecase implements the server side of the draft contract: shallow
// merges into the working copy, baseline commit/revert, and session close.
type DraftUsecase struct {
	repo   DraftRepository
	signal UpdatePublisher
	now    func() time.Time
}

func NewDraftUsecase(repo DraftRepository, signal UpdatePublisher) *DraftUsecase {
	return &DraftUsecase{
		repo:   repo,
		signal: signal,
		now:    time.Now,
	}
}

// Get returns the working copy of the draft.
func (uc *DraftUsecase) Get(ctx context.Context, resourceID string) (pdr.ResourceRecord, error) {
	ctx, span := tracer.Start(ctx, "Draft.Usecase.Get")
	defer span.End()

	draft, err := uc.repo.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return draft.Working, nil
}

// Patch shallow-merges changed properties into the working copy, appends an
// update-history entry, and returns the entire resulting draft.
func (uc *DraftUsecase) Patch(ctx context.Context, resourceID, userID string, patch pdr.ResourceRecord) (pdr.ResourceRecord, error) {
	ctx, span := tracer.Start(ctx, "Draft.Usecase.Patch")
	defer span.End()

	if len(patch) == 0 {
		return nil, domain.ValidationError{Reason: "empty patch"}
	}

	draft, err := uc.repo.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if draft.Closed() {
		return nil, domain.SessionClosedError{ResourceID: resourceID}
	}

	for k, v := range patch {
		if k == pdr.KeyEditStatus {
			continue
		}
		draft.Working[k] = v
	}
	draft.Working.AppendUpdateDetail(userID, uc.now())

	if err := uc.repo.Save(ctx, draft); err != nil {
		return nil, err
	}

	uc.publish(ctx, resourceID, domain.ActionUpdated, draft.Working)
	return draft.Working, nil
}

// Commit promotes the working copy to the new baseline; a later discard
// reverts to this point, not to the original.
func (uc *DraftUsecase) Commit(ctx context.Context, resourceID string) (pdr.ResourceRecord, error) {
	ctx, span := tracer.Start(ctx, "Draft.Usecase.Commit")
	defer span.End()

	draft, err := uc.repo.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if draft.Closed() {
		return nil, domain.SessionClosedError{ResourceID: resourceID}
	}

	draft.Baseline = draft.Working.Clone()
	if err := uc.repo.Save(ctx, draft); err != nil {
		return nil, err
	}

	uc.publish(ctx, resourceID, domain.ActionCommitted, draft.Working)
	return draft.Working, nil
}

// Discard reverts the working copy to the last committed baseline and
// returns the resulting record.
func (uc *DraftUsecase) Discard(ctx context.Context, resourceID string) (pdr.ResourceRecord, error) {
	ctx, span := tracer.Start(ctx, "Draft.Usecase.Discard")
	defer span.End()

	draft, err := uc.repo.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	draft.Working = draft.Baseline.Clone()
	if err := uc.repo.Save(ctx, draft); err != nil {
		return nil, err
	}

	uc.publish(ctx, resourceID, domain.ActionDiscarded, draft.Working)
	return draft.Working, nil
}

// Done marks the editing session closed.
func (uc *DraftUsecase) Done(ctx context.Context, resourceID string) (pdr.ResourceRecord, error) {
	ctx, span := tracer.Start(ctx, "Draft.Usecase.Done")
	defer span.End()

	draft, err := uc.repo.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	draft.Status = domain.DraftStatusDone
	if err := uc.repo.Save(ctx, draft); err != nil {
		return nil, err
	}

	uc.publish(ctx, resourceID, domain.ActionDone, draft.Working)
	return draft.Working, nil
}

func (uc *DraftUsecase) publish(ctx context.Context, resourceID, action string, record pdr.ResourceRecord) {
	if uc.signal == nil {
		return
	}
	// best effort: a lost event only delays a live view
	_ = uc.signal.PublishUpdate(ctx, domain.UpdateEvent{
		ResourceID: resourceID,
		Action:     action,
		Record:     record,
		When:       uc.now(),
	})
}
