package usecase

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
)

type scriptedLLM struct {
	requests []domain.Completion
	result   domain.CompletionResult
	err      error
}

func (s *scriptedLLM) Complete(_ context.Context, req domain.Completion) (domain.CompletionResult, error) {
	s.requests = append(s.requests, req)
	return s.result, s.err
}

func TestStoryCompletion(t *testing.T) {
	c := StoryCompletion(domain.StoryPrompt{Prompt: "a shy owl", Age: "4-6", Length: "short"})
	assert.Equal(t, 1000, c.MaxTokens)
	assert.Equal(t, 0.7, c.Temperature)
	assert.Equal(t, storySystemPrompt, c.System)
	assert.Contains(t, c.User, "- Theme/Prompt: a shy owl")
	assert.Contains(t, c.User, "- Target age: 4-6")
	assert.Contains(t, c.User, "- Main characters: age-appropriate characters")
	assert.Contains(t, c.User, "- Setting: a magical and cozy place")
	assert.Contains(t, c.User, "- Tone/Mood: cheerful and comforting")

	c = StoryCompletion(domain.StoryPrompt{Prompt: "p", Characters: "a fox", Setting: "a den", Mood: "calm"})
	assert.Contains(t, c.User, "- Main characters: a fox")
	assert.Contains(t, c.User, "- Setting: a den")
	assert.Contains(t, c.User, "- Tone/Mood: calm")
}

func TestTitleCompletionTakesTheBeginning(t *testing.T) {
	short := TitleCompletion("A tiny tale")
	assert.Contains(t, short.User, "\nA tiny tale\n")
	assert.NotContains(t, short.User, " ...")
	assert.Equal(t, 50, short.MaxTokens)
	assert.Equal(t, 0.8, short.Temperature)

	long := strings.Repeat("é", titleInputLimit) + "TAIL"
	c := TitleCompletion(long)
	assert.Contains(t, c.User, strings.Repeat("é", titleInputLimit)+" ...")
	assert.NotContains(t, c.User, "TAIL")
}

func TestSuggestionCompletionTakesTheEnd(t *testing.T) {
	long := "HEAD" + strings.Repeat("ñ", suggestionInputLimit)
	c := SuggestionCompletion(long)
	assert.Contains(t, c.User, strings.Repeat("ñ", suggestionInputLimit)+" ...")
	assert.NotContains(t, c.User, "HEAD")
	assert.Equal(t, 300, c.MaxTokens)
	assert.Equal(t, 0.8, c.Temperature)
}

func TestGenerateStory(t *testing.T) {
	llm := &scriptedLLM{result: domain.CompletionResult{
		Text:  "  Once upon a time.  ",
		Model: "llama-3.3-70b-versatile",
		Usage: domain.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}}
	u := NewGenerationUsecase(llm, nil)

	got, err := u.GenerateStory(context.Background(), domain.StoryPrompt{Prompt: "owls"})
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time.", got.Story)
	assert.Equal(t, domain.StoryMetadata{
		Model: "llama-3.3-70b-versatile", PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30,
	}, got.Metadata)
	require.Len(t, llm.requests, 1)

	_, err = u.GenerateStory(context.Background(), domain.StoryPrompt{Prompt: "  "})
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Len(t, llm.requests, 1)

	llm.result.Text = "   "
	_, err = u.GenerateStory(context.Background(), domain.StoryPrompt{Prompt: "owls"})
	assert.ErrorContains(t, err, "empty story")
}

func TestGenerateTitleAndSuggestion(t *testing.T) {
	llm := &scriptedLLM{result: domain.CompletionResult{Text: "\"Owl at Dawn\"\n"}}
	u := NewGenerationUsecase(llm, nil)

	title, err := u.GenerateTitle(context.Background(), "story")
	require.NoError(t, err)
	assert.Equal(t, "Owl at Dawn", title)

	llm.result.Text = " And then the owl slept. "
	suggestion, err := u.GenerateSuggestion(context.Background(), "story so far")
	require.NoError(t, err)
	assert.Equal(t, "And then the owl slept.", suggestion)

	_, err = u.GenerateTitle(context.Background(), "")
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	_, err = u.GenerateSuggestion(context.Background(), "")
	assert.ErrorAs(t, err, &verr)
}

func TestGenerationUpstreamErrorPassesThrough(t *testing.T) {
	llm := &scriptedLLM{err: &domain.UpstreamError{Service: "groq", Status: http.StatusUnauthorized}}
	u := NewGenerationUsecase(llm, nil)

	_, err := u.GenerateTitle(context.Background(), "story")
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
}
