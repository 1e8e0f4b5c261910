package usecase

import (
	"context"

	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
)

// DraftRepository defines storage operations for server-held drafts.
type DraftRepository interface {
	Get(ctx context.Context, resourceID string) (domain.Draft, error)
	Save(ctx context.Context, draft domain.Draft) error
	Exists(ctx context.Context, resourceID string) (bool, error)
}

// PermissionRepository defines lookup of edit permissions.
type PermissionRepository interface {
	HasEditPermission(ctx context.Context, userID, resourceID string) (bool, error)
}

// TokenIssuer mints edit tokens bound to a user and a resource.
type TokenIssuer interface {
	IssueEditToken(ctx context.Context, userID, resourceID string) (string, error)
}

// UpdatePublisher broadcasts draft update events to listeners.
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, event domain.UpdateEvent) error
}
