package storyview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
)

func sample() []domain.Story {
	return []domain.Story{
		{ID: "1", Title: "Dragon", Content: "A brave dragon", IsFavorite: true, IsPublished: true},
		{ID: "2", Title: "Cat", Content: "A sleepy cat", IsFavorite: false, IsPublished: true},
		{ID: "3", Title: "Moon", Content: "The dragon moon", IsFavorite: true, IsPublished: false},
		{ID: "4", Title: "Ocean", Content: "Waves", IsFavorite: false, IsPublished: false},
	}
}

func ids(stories []domain.Story) []string {
	out := make([]string, 0, len(stories))
	for _, s := range stories {
		out = append(out, s.ID)
	}
	return out
}

func TestFilterByStatus(t *testing.T) {
	list := sample()
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(FilterByStatus(list, StatusAll)))
	assert.Equal(t, []string{"1", "3"}, ids(FilterByStatus(list, StatusFavorites)))
	assert.Equal(t, []string{"1", "2"}, ids(FilterByStatus(list, StatusPublished)))
	assert.Equal(t, []string{"3", "4"}, ids(FilterByStatus(list, StatusDrafts)))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(FilterByStatus(list, Status("bogus"))))
}

func TestFilterIdempotent(t *testing.T) {
	list := sample()
	for _, status := range []Status{StatusAll, StatusFavorites, StatusPublished, StatusDrafts} {
		once := FilterByStatus(list, status)
		assert.Equal(t, once, FilterByStatus(once, status), string(status))
	}
	once := FilterBySearchTerm(list, "DRAGON")
	assert.Equal(t, once, FilterBySearchTerm(once, "DRAGON"))
}

func TestFilterBySearchTerm(t *testing.T) {
	list := sample()
	assert.Equal(t, []string{"1", "3"}, ids(FilterBySearchTerm(list, "dragon")))
	assert.Equal(t, []string{"2"}, ids(FilterBySearchTerm(list, "  CAT ")))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(FilterBySearchTerm(list, "   ")))
	assert.Empty(t, FilterBySearchTerm(list, "unicorn"))
}

func TestSearchAndStatusCombination(t *testing.T) {
	list := []domain.Story{
		{ID: "d", Title: "Dragon", IsFavorite: true, IsPublished: true},
		{ID: "c", Title: "Cat", IsFavorite: false, IsPublished: true},
	}
	got := FilterBySearchTerm(FilterByStatus(list, StatusFavorites), "dragon")
	require.Len(t, got, 1)
	assert.Equal(t, list[0], got[0])

	assert.Equal(t, got, Apply(list, Options{Status: StatusFavorites, Term: "dragon"}))
}

func TestFiltersDoNotMutateInput(t *testing.T) {
	list := sample()
	before := append([]domain.Story(nil), list...)
	_ = Apply(list, Options{Status: StatusDrafts, Term: "moon"})
	assert.Equal(t, before, list)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusAll, s)

	s, err = ParseStatus("Favorites")
	require.NoError(t, err)
	assert.Equal(t, StatusFavorites, s)

	_, err = ParseStatus("archived")
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
