package usecase

import (
	"context"
	"errors"

	"github.com/storynest/storynest/internal/domain"
)

// profileOf loads a users document. A requester without a profile document
// is treated as a bare account with no family.
func profileOf(ctx context.Context, store RecordStore, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, domain.ErrUnauthorized
	}
	rec, err := store.Get(ctx, domain.CollectionUsers, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Profile{ID: userID}, nil
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.ProfileFromRecord(rec), nil
}

// sameFamily reports whether two profiles share a non-empty family.
func sameFamily(a, b domain.Profile) bool {
	return a.FamilyID != "" && a.FamilyID == b.FamilyID
}

// authorizeChildAccess allows a child to see itself and a parent to see the
// children of its own family.
func authorizeChildAccess(ctx context.Context, store RecordStore, requesterID, childID string) error {
	if requesterID == "" {
		return domain.ErrUnauthorized
	}
	if requesterID == childID {
		return nil
	}
	requester, err := profileOf(ctx, store, requesterID)
	if err != nil {
		return err
	}
	if requester.Role != domain.RoleParent {
		return domain.ErrForbidden
	}
	rec, err := store.Get(ctx, domain.CollectionUsers, childID)
	if err != nil {
		return err
	}
	if !sameFamily(requester, domain.ProfileFromRecord(rec)) {
		return domain.ErrForbidden
	}
	return nil
}
