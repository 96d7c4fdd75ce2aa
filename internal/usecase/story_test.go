package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/infra/store"
	"github.com/storynest/storynest/internal/storyview"
)

type recordingSignal struct {
	mu     sync.Mutex
	events []domain.StoryEvent
	err    error
}

func (s *recordingSignal) PublishStoryEvent(_ context.Context, e domain.StoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSignal) types() []domain.StoryEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StoryEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func seedFamily(mem *store.Memory) {
	mem.Seed(domain.CollectionUsers, "p1", map[string]any{domain.FieldRole: "parent", domain.FieldFamilyID: "fam"})
	mem.Seed(domain.CollectionUsers, "p2", map[string]any{domain.FieldRole: "parent", domain.FieldFamilyID: "fam"})
	mem.Seed(domain.CollectionUsers, "k1", map[string]any{domain.FieldRole: "child", domain.FieldFamilyID: "fam"})
	mem.Seed(domain.CollectionUsers, "k2", map[string]any{domain.FieldRole: "child", domain.FieldFamilyID: "fam"})
	mem.Seed(domain.CollectionUsers, "x1", map[string]any{domain.FieldRole: "parent", domain.FieldFamilyID: "other"})
}

func authored(author, child string, published, favorite bool, minute int) map[string]any {
	fields := story(child, "fam", published, at(minute))
	fields[domain.FieldUserID] = author
	fields[domain.FieldIsFavorite] = favorite
	fields[domain.FieldUpdatedAt] = at(60 - minute)
	return fields
}

func newStories(t *testing.T) (*StoryUsecase, *store.Memory, *recordingSignal) {
	t.Helper()
	mem := store.NewMemory()
	seedFamily(mem)
	signal := &recordingSignal{}
	return NewStoryUsecase(mem, NewReconcilingFetcher(mem, nil, nil), signal, nil), mem, signal
}

func TestChildStoriesAuthorization(t *testing.T) {
	u, mem, _ := newStories(t)
	mem.Seed(domain.CollectionStories, "s1", authored("p1", "k1", true, true, 1))
	mem.Seed(domain.CollectionStories, "s2", authored("p1", "", true, false, 2))

	got, err := u.ChildStories(context.Background(), "k1", "k1", storyview.Options{Status: storyview.StatusAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, storyIDs(got))

	got, err = u.ChildStories(context.Background(), "p2", "k1", storyview.Options{Status: storyview.StatusFavorites})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, storyIDs(got))

	_, err = u.ChildStories(context.Background(), "k2", "k1", storyview.Options{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.ChildStories(context.Background(), "x1", "k1", storyview.Options{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.ChildStories(context.Background(), "", "k1", storyview.Options{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = u.ChildStories(context.Background(), "p1", "ghost", storyview.Options{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateStory(t *testing.T) {
	u, _, signal := newStories(t)
	ctx := context.Background()

	s, err := u.Create(ctx, "p1", domain.StoryInput{Title: "T", Content: "C", IsPublished: true})
	require.NoError(t, err)
	assert.Equal(t, "fam", s.FamilyID)
	assert.Equal(t, "p1", s.UserID)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, []domain.StoryEventType{domain.StoryCreated, domain.StoryPublished}, signal.types())

	_, err = u.Create(ctx, "p1", domain.StoryInput{Title: "T", Content: "C", FamilyID: "other"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	s, err = u.CreateForChild(ctx, "p1", domain.StoryInput{Title: "T", Content: "C"}, "k2")
	require.NoError(t, err)
	require.NotNil(t, s.ChildID)
	assert.Equal(t, "k2", *s.ChildID)

	_, err = u.CreateForChild(ctx, "x1", domain.StoryInput{Title: "T", Content: "C"}, "k2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.CreateForChild(ctx, "p1", domain.StoryInput{Title: "T", Content: "C"}, "")
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreateStorySignalFailureIsNotFatal(t *testing.T) {
	u, _, signal := newStories(t)
	signal.err = errors.New("redis down")

	_, err := u.Create(context.Background(), "p1", domain.StoryInput{Title: "T", Content: "C"})
	assert.NoError(t, err)
}

func TestGetStoryAuthorization(t *testing.T) {
	u, mem, _ := newStories(t)
	mem.Seed(domain.CollectionStories, "draft", authored("p1", "k1", false, false, 1))
	mem.Seed(domain.CollectionStories, "pub", authored("p1", "", true, false, 2))
	ctx := context.Background()

	for _, reader := range []string{"p1", "k1", "p2"} {
		_, err := u.Get(ctx, reader, "draft")
		assert.NoError(t, err, reader)
	}
	_, err := u.Get(ctx, "k2", "draft")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.Get(ctx, "k2", "pub")
	assert.NoError(t, err)

	_, err = u.Get(ctx, "x1", "pub")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.Get(ctx, "", "pub")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGetWithAudioBackfills(t *testing.T) {
	u, mem, _ := newStories(t)
	mem.Seed(domain.CollectionStories, "s1", authored("p1", "k1", true, false, 1))
	mem.Seed(domain.CollectionAudios, "old", map[string]any{
		domain.FieldStoryID: "s1", domain.FieldAudioURL: "https://a/old.mp3", domain.FieldCreatedAt: at(1),
	})
	mem.Seed(domain.CollectionAudios, "new", map[string]any{
		domain.FieldStoryID: "s1", domain.FieldAudioURL: "https://a/new.mp3", "duration": 42.5, domain.FieldCreatedAt: at(9),
	})
	ctx := context.Background()

	s, err := u.GetWithAudio(ctx, "p1", "s1")
	require.NoError(t, err)
	require.NotNil(t, s.AudioURL)
	assert.Equal(t, "https://a/new.mp3", *s.AudioURL)
	assert.Equal(t, 42.5, s.AudioDuration)

	rec, err := mem.Get(ctx, domain.CollectionStories, "s1")
	require.NoError(t, err)
	assert.Equal(t, "https://a/new.mp3", rec.String(domain.FieldAudioURL))
}

func TestGetWithAudioToleratesLookupFailure(t *testing.T) {
	u, mem, _ := newStories(t)
	mem.Seed(domain.CollectionStories, "s1", authored("p1", "k1", true, false, 1))
	mem.FailQuery(func(collection string, _ []domain.Filter) error {
		if collection == domain.CollectionAudios {
			return domain.Unavailable(nil)
		}
		return nil
	})

	s, err := u.GetWithAudio(context.Background(), "p1", "s1")
	require.NoError(t, err)
	assert.Nil(t, s.AudioURL)
}

func TestUpdateAndPublish(t *testing.T) {
	u, mem, signal := newStories(t)
	mem.Seed(domain.CollectionStories, "s1", authored("p1", "k1", false, false, 1))
	ctx := context.Background()

	s, err := u.Update(ctx, "p1", "s1", domain.StoryInput{Title: "New", Content: "Body", IsPublished: true})
	require.NoError(t, err)
	assert.Equal(t, "New", s.Title)
	assert.Equal(t, "fam", s.FamilyID)
	assert.True(t, s.IsPublished)
	assert.Equal(t, []domain.StoryEventType{domain.StoryUpdated, domain.StoryPublished}, signal.types())

	_, err = u.Update(ctx, "p2", "s1", domain.StoryInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	s, err = u.SetPublished(ctx, "p1", "s1", false)
	require.NoError(t, err)
	assert.False(t, s.IsPublished)
	// publishing to the state it already has sends nothing
	_, err = u.SetPublished(ctx, "p1", "s1", false)
	require.NoError(t, err)
	assert.Equal(t, []domain.StoryEventType{domain.StoryUpdated, domain.StoryPublished, domain.StoryUnpublished}, signal.types())

	s, err = u.SetFavorite(ctx, "p1", "s1", true)
	require.NoError(t, err)
	assert.True(t, s.IsFavorite)

	_, err = u.SetFavorite(ctx, "p1", "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateCannotRetargetStory(t *testing.T) {
	u, mem, signal := newStories(t)
	mem.Seed(domain.CollectionUsers, "xk", map[string]any{domain.FieldRole: "child", domain.FieldFamilyID: "other"})
	mem.Seed(domain.CollectionStories, "s1", authored("p1", "k1", false, false, 1))
	ctx := context.Background()
	foreign := "xk"

	_, err := u.Update(ctx, "p1", "s1", domain.StoryInput{Title: "T", Content: "C", FamilyID: "other", IsPublished: true})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.Update(ctx, "p1", "s1", domain.StoryInput{Title: "T", Content: "C", ChildID: &foreign, IsPublished: true})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.Create(ctx, "p1", domain.StoryInput{Title: "T", Content: "C", ChildID: &foreign, IsPublished: true})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	rec, err := mem.Get(ctx, domain.CollectionStories, "s1")
	require.NoError(t, err)
	assert.Equal(t, "k1", rec.String(domain.FieldChildID))
	assert.Equal(t, "fam", rec.String(domain.FieldFamilyID))
	assert.Empty(t, signal.types())

	visible, err := u.fetcher.FetchStoriesForOwner(ctx, "xk")
	require.NoError(t, err)
	assert.Empty(t, visible)

	// moving a story to a sibling stays allowed
	sibling := "k2"
	s, err := u.Update(ctx, "p1", "s1", domain.StoryInput{Title: "T", Content: "C", ChildID: &sibling})
	require.NoError(t, err)
	require.NotNil(t, s.ChildID)
	assert.Equal(t, "k2", *s.ChildID)
	assert.Equal(t, "fam", s.FamilyID)
}

func TestDeleteStory(t *testing.T) {
	u, mem, signal := newStories(t)
	mem.Seed(domain.CollectionStories, "s1", authored("p1", "k1", true, false, 1))
	ctx := context.Background()

	assert.ErrorIs(t, u.Delete(ctx, "k1", "s1"), domain.ErrForbidden)
	require.NoError(t, u.Delete(ctx, "p1", "s1"))
	assert.Equal(t, []domain.StoryEventType{domain.StoryDeleted}, signal.types())

	_, err := mem.Get(ctx, domain.CollectionStories, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserLists(t *testing.T) {
	u, mem, _ := newStories(t)
	// updatedAt runs opposite to createdAt
	mem.Seed(domain.CollectionStories, "a", authored("p1", "k1", true, true, 1))
	mem.Seed(domain.CollectionStories, "b", authored("p1", "", false, true, 2))
	mem.Seed(domain.CollectionStories, "c", authored("p1", "", true, false, 3))
	mem.Seed(domain.CollectionStories, "theirs", authored("p2", "", true, true, 4))
	ctx := context.Background()

	all, err := u.ListByUser(ctx, "p1", storyview.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, storyIDs(all))

	drafts, err := u.ListByUser(ctx, "p1", storyview.Options{Status: storyview.StatusDrafts})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, storyIDs(drafts))

	recent, err := u.Recent(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, storyIDs(recent))

	favorites, err := u.Favorites(ctx, "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, storyIDs(favorites))

	family, err := u.ListByFamily(ctx, "k1", "fam")
	require.NoError(t, err)
	assert.Equal(t, []string{"theirs", "c", "a"}, storyIDs(family))

	_, err = u.ListByFamily(ctx, "x1", "fam")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = u.ListByUser(ctx, "", storyview.Options{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
