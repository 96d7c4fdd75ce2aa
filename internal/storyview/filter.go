// Package storyview derives the filtered lists shown on story screens from an
// already fetched set of stories. Nothing here does I/O and no function
// mutates its input.
package storyview

import (
	"fmt"
	"strings"

	"github.com/storynest/storynest/internal/domain"
)

// Status selects a subset of stories by their flags.
type Status string

const (
	StatusAll       Status = "all"
	StatusFavorites Status = "favorites"
	StatusPublished Status = "published"
	StatusDrafts    Status = "drafts"
)

// ParseStatus validates user input. An empty string means StatusAll.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusFavorites:
		return StatusFavorites, nil
	case StatusPublished:
		return StatusPublished, nil
	case StatusDrafts:
		return StatusDrafts, nil
	}
	return "", domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
}

// Options combines both filters; they are ANDed.
type Options struct {
	Status Status
	Term   string
}

// FilterByStatus keeps the stories matching status. Unknown statuses behave
// like StatusAll.
func FilterByStatus(stories []domain.Story, status Status) []domain.Story {
	var keep func(domain.Story) bool
	switch status {
	case StatusFavorites:
		keep = func(s domain.Story) bool { return s.IsFavorite }
	case StatusPublished:
		keep = func(s domain.Story) bool { return s.IsPublished }
	case StatusDrafts:
		keep = func(s domain.Story) bool { return !s.IsPublished }
	default:
		keep = func(domain.Story) bool { return true }
	}
	return filter(stories, keep)
}

// FilterBySearchTerm keeps the stories whose title or content contains term,
// case-insensitively. A blank term keeps everything.
func FilterBySearchTerm(stories []domain.Story, term string) []domain.Story {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return filter(stories, func(domain.Story) bool { return true })
	}
	return filter(stories, func(s domain.Story) bool {
		return strings.Contains(strings.ToLower(s.Title), needle) ||
			strings.Contains(strings.ToLower(s.Content), needle)
	})
}

// Apply runs the status filter then the search filter.
func Apply(stories []domain.Story, opts Options) []domain.Story {
	return FilterBySearchTerm(FilterByStatus(stories, opts.Status), opts.Term)
}

func filter(stories []domain.Story, keep func(domain.Story) bool) []domain.Story {
	out := make([]domain.Story, 0, len(stories))
	for _, s := range stories {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
