package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/storyview"
)

const (
	DefaultRecentLimit    = 5
	DefaultFavoritesLimit = 10
)

type StoryUsecase struct {
	store   RecordStore
	fetcher *ReconcilingFetcher
	signal  SignalPublisher
	logger  *slog.Logger
}

func NewStoryUsecase(store RecordStore, fetcher *ReconcilingFetcher, signal SignalPublisher, logger *slog.Logger) *StoryUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoryUsecase{
		store:   store,
		fetcher: fetcher,
		signal:  signal,
		logger:  logger.With(slog.String("module", "story")),
	}
}

// ChildStories is the kid dashboard list: the reconciled stories visible to
// childID with the derived view applied.
func (u *StoryUsecase) ChildStories(ctx context.Context, requesterID, childID string, opts storyview.Options) ([]domain.Story, error) {
	ctx, span := tracer.Start(ctx, "Story.ChildStories")
	defer span.End()

	if err := authorizeChildAccess(ctx, u.store, requesterID, childID); err != nil {
		return nil, err
	}
	stories, err := u.fetcher.FetchStoriesForOwner(ctx, childID)
	if err != nil {
		return nil, err
	}
	return storyview.Apply(stories, opts), nil
}

func (u *StoryUsecase) Create(ctx context.Context, userID string, in domain.StoryInput) (domain.Story, error) {
	ctx, span := tracer.Start(ctx, "Story.Create")
	defer span.End()

	if err := u.authorizeTarget(ctx, userID, &in, ""); err != nil {
		return domain.Story{}, err
	}

	rec, err := u.store.Create(ctx, domain.CollectionStories, in.Fields(userID))
	if err != nil {
		return domain.Story{}, err
	}
	story := domain.StoryFromRecord(rec)

	u.publish(ctx, domain.StoryCreated, story)
	if story.IsPublished {
		u.publish(ctx, domain.StoryPublished, story)
	}
	return story, nil
}

// CreateForChild creates a story addressed to one child of the author's family.
func (u *StoryUsecase) CreateForChild(ctx context.Context, userID string, in domain.StoryInput, childID string) (domain.Story, error) {
	if childID == "" {
		return domain.Story{}, domain.ValidationError{Field: "childId", Reason: "must not be empty"}
	}
	in.ChildID = &childID
	return u.Create(ctx, userID, in)
}

// authorizeTarget checks the family and child a story is written to. An
// empty family resolves to current, or to the author's family when current
// is empty. The family must be the author's and the child one the author may
// manage.
func (u *StoryUsecase) authorizeTarget(ctx context.Context, userID string, in *domain.StoryInput, current string) error {
	author, err := profileOf(ctx, u.store, userID)
	if err != nil {
		return err
	}
	if in.FamilyID == "" {
		in.FamilyID = current
	}
	if in.FamilyID == "" {
		in.FamilyID = author.FamilyID
	}
	if in.FamilyID != author.FamilyID {
		return domain.ErrForbidden
	}
	if in.ChildID != nil && *in.ChildID != "" {
		if err := authorizeChildAccess(ctx, u.store, userID, *in.ChildID); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a story its author, its child, or (once published) its family
// may read.
func (u *StoryUsecase) Get(ctx context.Context, requesterID, id string) (domain.Story, error) {
	ctx, span := tracer.Start(ctx, "Story.Get")
	defer span.End()

	rec, err := u.store.Get(ctx, domain.CollectionStories, id)
	if err != nil {
		return domain.Story{}, err
	}
	story := domain.StoryFromRecord(rec)
	if err := u.authorizeRead(ctx, requesterID, story); err != nil {
		return domain.Story{}, err
	}
	return story, nil
}

func (u *StoryUsecase) authorizeRead(ctx context.Context, requesterID string, s domain.Story) error {
	if requesterID == "" {
		return domain.ErrUnauthorized
	}
	if s.UserID == requesterID || (s.ChildID != nil && *s.ChildID == requesterID) {
		return nil
	}
	requester, err := profileOf(ctx, u.store, requesterID)
	if err != nil {
		return err
	}
	if requester.FamilyID == "" || requester.FamilyID != s.FamilyID {
		return domain.ErrForbidden
	}
	if requester.Role != domain.RoleParent && !s.IsPublished {
		return domain.ErrForbidden
	}
	return nil
}

// GetWithAudio attaches the newest narration to a story that does not
// reference one yet and backfills the story when it can.
func (u *StoryUsecase) GetWithAudio(ctx context.Context, requesterID, id string) (domain.Story, error) {
	story, err := u.Get(ctx, requesterID, id)
	if err != nil {
		return domain.Story{}, err
	}
	if story.AudioURL != nil {
		return story, nil
	}

	recs, err := u.store.Query(ctx, domain.CollectionAudios, []domain.Filter{domain.Eq(domain.FieldStoryID, id)})
	if err != nil {
		u.logger.WarnContext(ctx, "audio lookup failed", slog.String("story", id), slog.String("error", err.Error()))
		return story, nil
	}
	if len(recs) == 0 {
		return story, nil
	}
	audios := make([]domain.Audio, 0, len(recs))
	for _, r := range recs {
		audios = append(audios, domain.AudioFromRecord(r))
	}
	sort.SliceStable(audios, func(i, j int) bool { return audios[i].CreatedAt.After(audios[j].CreatedAt) })

	latest := audios[0]
	story.AudioURL = &latest.AudioURL
	story.AudioDuration = latest.Duration

	backfill := map[string]any{domain.FieldAudioURL: latest.AudioURL}
	if latest.Duration > 0 {
		backfill["audioDuration"] = latest.Duration
	}
	if err := u.store.Update(ctx, domain.CollectionStories, id, backfill); err != nil {
		u.logger.WarnContext(ctx, "audio backfill failed", slog.String("story", id), slog.String("error", err.Error()))
	}
	return story, nil
}

func (u *StoryUsecase) owned(ctx context.Context, userID, id string) (domain.Story, error) {
	if userID == "" {
		return domain.Story{}, domain.ErrUnauthorized
	}
	rec, err := u.store.Get(ctx, domain.CollectionStories, id)
	if err != nil {
		return domain.Story{}, err
	}
	story := domain.StoryFromRecord(rec)
	if story.UserID != userID {
		return domain.Story{}, domain.ErrForbidden
	}
	return story, nil
}

func (u *StoryUsecase) Update(ctx context.Context, userID, id string, in domain.StoryInput) (domain.Story, error) {
	ctx, span := tracer.Start(ctx, "Story.Update")
	defer span.End()

	before, err := u.owned(ctx, userID, id)
	if err != nil {
		return domain.Story{}, err
	}
	if err := u.authorizeTarget(ctx, userID, &in, before.FamilyID); err != nil {
		return domain.Story{}, err
	}
	if err := u.store.Update(ctx, domain.CollectionStories, id, in.Fields(userID)); err != nil {
		return domain.Story{}, err
	}
	after, err := u.reload(ctx, id)
	if err != nil {
		return domain.Story{}, err
	}

	u.publish(ctx, domain.StoryUpdated, after)
	if before.IsPublished != after.IsPublished {
		u.publish(ctx, publicationEvent(after.IsPublished), after)
	}
	return after, nil
}

func (u *StoryUsecase) Delete(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Story.Delete")
	defer span.End()

	story, err := u.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := u.store.Delete(ctx, domain.CollectionStories, id); err != nil {
		return err
	}
	u.publish(ctx, domain.StoryDeleted, story)
	return nil
}

func (u *StoryUsecase) SetFavorite(ctx context.Context, userID, id string, favorite bool) (domain.Story, error) {
	if _, err := u.owned(ctx, userID, id); err != nil {
		return domain.Story{}, err
	}
	if err := u.store.Update(ctx, domain.CollectionStories, id, map[string]any{domain.FieldIsFavorite: favorite}); err != nil {
		return domain.Story{}, err
	}
	return u.reload(ctx, id)
}

func (u *StoryUsecase) SetPublished(ctx context.Context, userID, id string, published bool) (domain.Story, error) {
	before, err := u.owned(ctx, userID, id)
	if err != nil {
		return domain.Story{}, err
	}
	if err := u.store.Update(ctx, domain.CollectionStories, id, map[string]any{domain.FieldIsPublished: published}); err != nil {
		return domain.Story{}, err
	}
	after, err := u.reload(ctx, id)
	if err != nil {
		return domain.Story{}, err
	}
	if before.IsPublished != published {
		u.publish(ctx, publicationEvent(published), after)
	}
	return after, nil
}

func (u *StoryUsecase) reload(ctx context.Context, id string) (domain.Story, error) {
	rec, err := u.store.Get(ctx, domain.CollectionStories, id)
	if err != nil {
		return domain.Story{}, err
	}
	return domain.StoryFromRecord(rec), nil
}

// ListByUser returns every story the user wrote, most recently edited first,
// narrowed by the derived view.
func (u *StoryUsecase) ListByUser(ctx context.Context, userID string, opts storyview.Options) ([]domain.Story, error) {
	ctx, span := tracer.Start(ctx, "Story.ListByUser")
	defer span.End()

	stories, err := u.query(ctx, domain.Eq(domain.FieldUserID, userID))
	if err != nil {
		return nil, err
	}
	sortRecentlyUpdated(stories)
	return storyview.Apply(stories, opts), nil
}

func (u *StoryUsecase) Recent(ctx context.Context, userID string, limit int) ([]domain.Story, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	stories, err := u.query(ctx, domain.Eq(domain.FieldUserID, userID))
	if err != nil {
		return nil, err
	}
	SortNewestFirst(stories)
	return truncate(stories, limit), nil
}

func (u *StoryUsecase) Favorites(ctx context.Context, userID string, limit int) ([]domain.Story, error) {
	if limit <= 0 {
		limit = DefaultFavoritesLimit
	}
	stories, err := u.query(ctx,
		domain.Eq(domain.FieldUserID, userID),
		domain.Eq(domain.FieldIsFavorite, true),
	)
	if err != nil {
		return nil, err
	}
	sortRecentlyUpdated(stories)
	return truncate(stories, limit), nil
}

// ListByFamily returns the published stories of a family, newest first.
func (u *StoryUsecase) ListByFamily(ctx context.Context, requesterID, familyID string) ([]domain.Story, error) {
	requester, err := profileOf(ctx, u.store, requesterID)
	if err != nil {
		return nil, err
	}
	if familyID == "" || requester.FamilyID != familyID {
		return nil, domain.ErrForbidden
	}
	stories, err := u.query(ctx,
		domain.Eq(domain.FieldFamilyID, familyID),
		domain.Eq(domain.FieldIsPublished, true),
	)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(stories)
	return stories, nil
}

func (u *StoryUsecase) query(ctx context.Context, filters ...domain.Filter) ([]domain.Story, error) {
	if len(filters) > 0 && filters[0].Value == "" {
		return nil, domain.ErrUnauthorized
	}
	recs, err := u.store.Query(ctx, domain.CollectionStories, filters)
	if err != nil {
		return nil, err
	}
	stories := make([]domain.Story, 0, len(recs))
	for _, r := range recs {
		stories = append(stories, domain.StoryFromRecord(r))
	}
	return stories, nil
}

func (u *StoryUsecase) publish(ctx context.Context, typ domain.StoryEventType, s domain.Story) {
	if u.signal == nil || s.FamilyID == "" {
		return
	}
	event := domain.StoryEvent{Type: typ, StoryID: s.ID, FamilyID: s.FamilyID}
	if s.ChildID != nil {
		event.ChildID = *s.ChildID
	}
	if err := u.signal.PublishStoryEvent(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		u.logger.WarnContext(ctx, "story event not delivered",
			slog.String("type", string(typ)),
			slog.String("story", s.ID),
			slog.String("error", err.Error()),
		)
	}
}

func publicationEvent(published bool) domain.StoryEventType {
	if published {
		return domain.StoryPublished
	}
	return domain.StoryUnpublished
}

// sortRecentlyUpdated orders by UpdatedAt descending, then ID ascending.
func sortRecentlyUpdated(stories []domain.Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		a, b := sortKey(stories[i].UpdatedAt), sortKey(stories[j].UpdatedAt)
		if !a.Equal(b) {
			return a.After(b)
		}
		return stories[i].ID < stories[j].ID
	})
}

func truncate(stories []domain.Story, limit int) []domain.Story {
	if len(stories) > limit {
		return stories[:limit]
	}
	return stories
}
