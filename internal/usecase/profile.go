package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/storynest/storynest/internal/domain"
)

type ProfileUsecase struct {
	store  RecordStore
	blobs  BlobStore
	logger *slog.Logger
	now    func() time.Time
}

func NewProfileUsecase(store RecordStore, blobs BlobStore, logger *slog.Logger) *ProfileUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileUsecase{
		store:  store,
		blobs:  blobs,
		logger: logger.With(slog.String("module", "profile")),
		now:    time.Now,
	}
}

func (u *ProfileUsecase) Get(ctx context.Context, userID string) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.Get")
	defer span.End()

	if userID == "" {
		return domain.Profile{}, domain.ErrUnauthorized
	}
	rec, err := u.store.Get(ctx, domain.CollectionUsers, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.ProfileFromRecord(rec), nil
}

func (u *ProfileUsecase) Update(ctx context.Context, userID string, in domain.ProfileInput) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.Update")
	defer span.End()

	if userID == "" {
		return domain.Profile{}, domain.ErrUnauthorized
	}
	if err := u.store.Update(ctx, domain.CollectionUsers, userID, in.Fields()); err != nil {
		return domain.Profile{}, err
	}
	return u.Get(ctx, userID)
}

// parentOf loads the requester and checks that it may manage children.
func (u *ProfileUsecase) parentOf(ctx context.Context, requesterID string) (domain.Profile, error) {
	parent, err := profileOf(ctx, u.store, requesterID)
	if err != nil {
		return domain.Profile{}, err
	}
	if parent.Role != domain.RoleParent || parent.FamilyID == "" {
		return domain.Profile{}, domain.ErrForbidden
	}
	return parent, nil
}

func (u *ProfileUsecase) ListChildren(ctx context.Context, requesterID string) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.ListChildren")
	defer span.End()

	parent, err := u.parentOf(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	recs, err := u.store.Query(ctx, domain.CollectionUsers, []domain.Filter{
		domain.Eq(domain.FieldFamilyID, parent.FamilyID),
		domain.Eq(domain.FieldRole, string(domain.RoleChild)),
	})
	if err != nil {
		return nil, err
	}
	children := make([]domain.Profile, 0, len(recs))
	for _, r := range recs {
		children = append(children, domain.ProfileFromRecord(r))
	}
	sort.SliceStable(children, func(i, j int) bool {
		if !children[i].CreatedAt.Equal(children[j].CreatedAt) {
			return children[i].CreatedAt.Before(children[j].CreatedAt)
		}
		return children[i].ID < children[j].ID
	})
	return children, nil
}

func (u *ProfileUsecase) CreateChild(ctx context.Context, requesterID string, in domain.ChildInput) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.CreateChild")
	defer span.End()

	parent, err := u.parentOf(ctx, requesterID)
	if err != nil {
		return domain.Profile{}, err
	}
	rec, err := u.store.Create(ctx, domain.CollectionUsers, in.Fields(parent.FamilyID, parent.ID))
	if err != nil {
		return domain.Profile{}, err
	}
	u.logger.InfoContext(ctx, "child account created",
		slog.String("family", parent.FamilyID),
		slog.String("child", rec.ID),
	)
	return domain.ProfileFromRecord(rec), nil
}

func (u *ProfileUsecase) child(ctx context.Context, parent domain.Profile, childID string) (domain.Profile, error) {
	rec, err := u.store.Get(ctx, domain.CollectionUsers, childID)
	if err != nil {
		return domain.Profile{}, err
	}
	child := domain.ProfileFromRecord(rec)
	if child.Role != domain.RoleChild || !sameFamily(parent, child) {
		return domain.Profile{}, domain.ErrForbidden
	}
	return child, nil
}

func (u *ProfileUsecase) UpdateChild(ctx context.Context, requesterID, childID string, in domain.ChildInput) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.UpdateChild")
	defer span.End()

	parent, err := u.parentOf(ctx, requesterID)
	if err != nil {
		return domain.Profile{}, err
	}
	if _, err := u.child(ctx, parent, childID); err != nil {
		return domain.Profile{}, err
	}
	if err := u.store.Update(ctx, domain.CollectionUsers, childID, domain.ProfileInput(in).Fields()); err != nil {
		return domain.Profile{}, err
	}
	return u.Get(ctx, childID)
}

func (u *ProfileUsecase) DeleteChild(ctx context.Context, requesterID, childID string) error {
	ctx, span := tracer.Start(ctx, "Profile.DeleteChild")
	defer span.End()

	parent, err := u.parentOf(ctx, requesterID)
	if err != nil {
		return err
	}
	if _, err := u.child(ctx, parent, childID); err != nil {
		return err
	}
	return u.store.Delete(ctx, domain.CollectionUsers, childID)
}
