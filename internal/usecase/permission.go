package usecase

import (
	"context"

	pdr "github.com/usnistgov/oar-pdr-sub001"
	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
)

// PermissionUsecase resolves whether a user may edit a resource and mints
// the edit token handed back to the landing page.
type PermissionUsecase struct {
	drafts DraftRepository
	perms  PermissionRepository
	tokens TokenIssuer
}

func NewPermissionUsecase(drafts DraftRepository, perms PermissionRepository, tokens TokenIssuer) *PermissionUsecase {
	return &PermissionUsecase{
		drafts: drafts,
		perms:  perms,
		tokens: tokens,
	}
}

// Resolve returns the credential for userID on resourceID:
//   - no draft tracking for the resource: NotFoundError
//   - empty userID (unauthenticated): an empty credential
//   - authenticated without permission: a credential with only the user id
//   - permitted: user id plus a fresh edit token
func (uc *PermissionUsecase) Resolve(ctx context.Context, userID, resourceID string) (pdr.Credential, error) {
	ctx, span := tracer.Start(ctx, "Permission.Usecase.Resolve")
	defer span.End()

	tracked, err := uc.drafts.Exists(ctx, resourceID)
	if err != nil {
		return pdr.Credential{}, err
	}
	if !tracked {
		return pdr.Credential{}, domain.NotFoundError{Resource: "draft"}
	}

	if userID == "" {
		return pdr.Credential{}, nil
	}

	permitted, err := uc.perms.HasEditPermission(ctx, userID, resourceID)
	if err != nil {
		return pdr.Credential{}, err
	}
	if !permitted {
		return pdr.Credential{UserID: userID}, nil
	}

	token, err := uc.tokens.IssueEditToken(ctx, userID, resourceID)
	if err != nil {
		return pdr.Credential{}, err
	}
	return pdr.Credential{UserID: userID, Token: token}, nil
}
