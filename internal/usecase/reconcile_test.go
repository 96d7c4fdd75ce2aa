package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/infra/store"
)

func at(minute int) time.Time {
	return time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC)
}

func story(child, family string, published bool, created time.Time) map[string]any {
	fields := map[string]any{
		"title":                 "t",
		domain.FieldIsPublished: published,
		domain.FieldCreatedAt:   created,
	}
	if child != "" {
		fields[domain.FieldChildID] = child
	}
	if family != "" {
		fields[domain.FieldFamilyID] = family
	}
	return fields
}

func storyIDs(stories []domain.Story) []string {
	out := make([]string, 0, len(stories))
	for _, s := range stories {
		out = append(out, s.ID)
	}
	return out
}

type countingObserver struct {
	outcomes []string
}

func (o *countingObserver) ObserveFetch(outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestFetchMergesBothViews(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(domain.CollectionUsers, "c1", map[string]any{domain.FieldFamilyID: "f1", domain.FieldRole: "child"})
	mem.Seed(domain.CollectionStories, "a", story("c1", "f1", true, at(5)))
	mem.Seed(domain.CollectionStories, "b", story("", "f1", true, at(10)))
	mem.Seed(domain.CollectionStories, "draft", story("c1", "f1", false, at(20)))
	mem.Seed(domain.CollectionStories, "other", story("", "f2", true, at(30)))

	obs := &countingObserver{}
	f := NewReconcilingFetcher(mem, nil, obs)
	stories, out, err := f.FetchStoriesForOwnerDetailed(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, storyIDs(stories))
	assert.Equal(t, domain.ProvenanceGroup, stories[0].Source)
	assert.Equal(t, domain.ProvenanceDirect, stories[1].Source)
	assert.Equal(t, OutcomeOK, out.Kind)
	assert.Equal(t, "f1", out.GroupKey)
	assert.Equal(t, 1, out.DirectCount)
	assert.Equal(t, 2, out.GroupCount)
	assert.Equal(t, []domain.FetchState{
		domain.FetchStateStart,
		domain.FetchStateResolvingGroup,
		domain.FetchStateDualQuerying,
		domain.FetchStateMerging,
		domain.FetchStateFiltering,
		domain.FetchStateSorting,
		domain.FetchStateDone,
	}, out.States)
	assert.Equal(t, []string{OutcomeOK}, obs.outcomes)
}

func TestFetchIsDeterministic(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(domain.CollectionUsers, "c1", map[string]any{domain.FieldFamilyID: "f1"})
	for i, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		mem.Seed(domain.CollectionStories, id, story("c1", "f1", true, at(i%2)))
	}
	f := NewReconcilingFetcher(mem, nil, nil)

	first, err := f.FetchStoriesForOwner(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, first, 5)
	for i := 0; i < 10; i++ {
		again, err := f.FetchStoriesForOwner(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, storyIDs(first), storyIDs(again))
	}

	seen := map[string]bool{}
	for i, s := range first {
		assert.False(t, seen[s.ID], "duplicate %s", s.ID)
		seen[s.ID] = true
		assert.True(t, s.IsPublished)
		if i > 0 {
			assert.False(t, s.CreatedAt.After(first[i-1].CreatedAt))
		}
	}
	assert.Equal(t, []string{"s2", "s4", "s1", "s3", "s5"}, storyIDs(first))
}

func TestFetchUnknownOwnerIsEmpty(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(domain.CollectionStories, "a", story("ghost", "", true, at(1)))
	f := NewReconcilingFetcher(mem, nil, nil)

	stories, out, err := f.FetchStoriesForOwnerDetailed(context.Background(), "ghost")
	require.NoError(t, err)
	assert.NotNil(t, stories)
	assert.Empty(t, stories)
	assert.Equal(t, OutcomeEmpty, out.Kind)
	assert.Equal(t, domain.FetchStateDone, out.Final())
}

func TestFetchWithoutFamilySkipsGroupView(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(domain.CollectionUsers, "c1", map[string]any{domain.FieldRole: "child"})
	mem.Seed(domain.CollectionStories, "a", story("c1", "", true, at(1)))
	mem.Seed(domain.CollectionStories, "b", story("", "", true, at(2)))

	var familyQueries atomic.Int32
	mem.FailQuery(func(_ string, filters []domain.Filter) error {
		for _, flt := range filters {
			if flt.Field == domain.FieldFamilyID {
				familyQueries.Add(1)
			}
		}
		return nil
	})

	stories, err := NewReconcilingFetcher(mem, nil, nil).FetchStoriesForOwner(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, storyIDs(stories))
	assert.Zero(t, familyQueries.Load())
}

func TestFetchFallsBackWhenLookupFails(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(domain.CollectionUsers, "c1", map[string]any{domain.FieldFamilyID: "f1"})
	mem.Seed(domain.CollectionStories, "s1", story("c1", "", true, at(1)))
	mem.Seed(domain.CollectionStories, "s2", story("c1", "", false, at(2)))
	mem.Seed(domain.CollectionStories, "s3", story("", "f1", true, at(3)))
	mem.FailQuery(func(collection string, _ []domain.Filter) error {
		if collection == domain.CollectionUsers {
			return domain.Unavailable(errors.New("users offline"))
		}
		return nil
	})

	obs := &countingObserver{}
	stories, out, err := NewReconcilingFetcher(mem, nil, obs).FetchStoriesForOwnerDetailed(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, storyIDs(stories))
	assert.Equal(t, domain.ProvenanceFallback, stories[0].Source)
	assert.Equal(t, OutcomeFallback, out.Kind)
	assert.Contains(t, out.States, domain.FetchStateFallbackQuerying)
	assert.Equal(t, []string{OutcomeFallback}, obs.outcomes)
}

func TestFetchFallsBackWhenGroupViewFails(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(domain.CollectionUsers, "c1", map[string]any{domain.FieldFamilyID: "f1"})
	mem.Seed(domain.CollectionStories, "s1", story("c1", "f1", true, at(1)))
	mem.Seed(domain.CollectionStories, "s3", story("", "f1", true, at(3)))
	mem.FailQuery(func(_ string, filters []domain.Filter) error {
		for _, flt := range filters {
			if flt.Field == domain.FieldFamilyID {
				return domain.Unavailable(errors.New("index missing"))
			}
		}
		return nil
	})

	stories, out, err := NewReconcilingFetcher(mem, nil, nil).FetchStoriesForOwnerDetailed(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, storyIDs(stories))
	assert.Equal(t, OutcomeFallback, out.Kind)
}

func TestFetchFallbackFailurePropagates(t *testing.T) {
	mem := store.NewMemory()
	mem.FailQuery(func(string, []domain.Filter) error {
		return domain.Unavailable(errors.New("down"))
	})

	obs := &countingObserver{}
	stories, out, err := NewReconcilingFetcher(mem, nil, obs).FetchStoriesForOwnerDetailed(context.Background(), "c1")
	require.Error(t, err)
	assert.Nil(t, stories)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.Equal(t, domain.FetchStateFailed, out.Final())
	assert.Equal(t, []string{OutcomeFailed}, obs.outcomes)
}

func TestFetchCancelledDoesNotFallBack(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(domain.CollectionUsers, "c1", map[string]any{domain.FieldFamilyID: "f1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, out, err := NewReconcilingFetcher(mem, nil, nil).FetchStoriesForOwnerDetailed(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, OutcomeCancelled, out.Kind)
	assert.NotContains(t, out.States, domain.FetchStateFallbackQuerying)

	var calls atomic.Int32
	mem.FailQuery(func(string, []domain.Filter) error {
		calls.Add(1)
		return context.Canceled
	})
	_, out, err = NewReconcilingFetcher(mem, nil, nil).FetchStoriesForOwnerDetailed(context.Background(), "c1")
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.NotContains(t, out.States, domain.FetchStateFallbackQuerying)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRejectsEmptyOwner(t *testing.T) {
	_, out, err := NewReconcilingFetcher(store.NewMemory(), nil, nil).FetchStoriesForOwnerDetailed(context.Background(), "  ")
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ownerKey", verr.Field)
	assert.Equal(t, OutcomeInvalid, out.Kind)
}

func TestSortNewestFirst(t *testing.T) {
	stories := []domain.Story{
		{ID: "b", CreatedAt: at(1)},
		{ID: "none"},
		{ID: "a", CreatedAt: at(1)},
		{ID: "c", CreatedAt: at(9)},
	}
	SortNewestFirst(stories)
	assert.Equal(t, []string{"c", "a", "b", "none"}, storyIDs(stories))
}
