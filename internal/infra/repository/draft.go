package repository

import (
	"context"
	"encoding/json"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	pdr "github.com/usnistgov/oar-pdr-sub001"
	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
	"github.com/usnistgov/oar-pdr-sub001/internal/infra/database/models"
)

// DraftRepository persists drafts in postgres, one row per resource.
type DraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) Get(ctx context.Context, resourceID string) (domain.Draft, error) {
	var row models.Draft
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Draft{}, domain.NotFoundError{Resource: "draft"}
	}
	if err != nil {
		return domain.Draft{}, pkgerrors.Wrap(err, "loading draft")
	}

	draft := domain.Draft{
		ResourceID: row.ResourceID,
		Status:     row.Status,
		UpdatedAt:  row.MDate,
	}
	if err := json.Unmarshal([]byte(row.Baseline), &draft.Baseline); err != nil {
		return domain.Draft{}, pkgerrors.Wrap(err, "decoding draft baseline")
	}
	if err := json.Unmarshal([]byte(row.Working), &draft.Working); err != nil {
		return domain.Draft{}, pkgerrors.Wrap(err, "decoding draft working copy")
	}
	return draft, nil
}

func (r *DraftRepository) Save(ctx context.Context, draft domain.Draft) error {
	baseline, err := json.Marshal(draft.Baseline)
	if err != nil {
		return pkgerrors.Wrap(err, "encoding draft baseline")
	}
	working, err := json.Marshal(draft.Working)
	if err != nil {
		return pkgerrors.Wrap(err, "encoding draft working copy")
	}

	status := draft.Status
	if status == "" {
		status = domain.DraftStatusActive
	}

	row := models.Draft{
		ResourceID: draft.ResourceID,
		Baseline:   string(baseline),
		Working:    string(working),
		Status:     status,
	}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return pkgerrors.Wrap(err, "saving draft")
	}
	return nil
}

func (r *DraftRepository) Exists(ctx context.Context, resourceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Draft{}).
		Where("resource_id = ?", resourceID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "checking draft tracking")
	}
	return count > 0, nil
}

// Seed creates a draft row for a resource if none exists, with both copies
// set to the given record.
func (r *DraftRepository) Seed(ctx context.Context, record pdr.ResourceRecord) error {
	exists, err := r.Exists(ctx, record.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.Save(ctx, domain.Draft{
		ResourceID: record.ID(),
		Baseline:   record.Clone(),
		Working:    record.Clone(),
		Status:     domain.DraftStatusActive,
	})
}
