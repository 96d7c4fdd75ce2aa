package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/storynest/storynest/internal/domain"
)

const (
	titleInputLimit      = 1000
	suggestionInputLimit = 800
)

const storySystemPrompt = `You are a storyteller specialized in creating charming children's stories.
Create a story appropriate for the specified age, with appropriate language and positive messages.
The story should be engaging, educational and suitable for bedtime.`

const storyUserTemplate = `
Create a children's story with the following characteristics:
- Theme/Prompt: %s
- Target age: %s
- Duration: %s
- Main characters: %s
- Setting: %s
- Tone/Mood: %s

The story should:
1. Be appropriate for the specified age
2. Have a positive message or life lesson
3. Be suitable for bedtime
4. Be between 200-800 words depending on duration
5. Include dialogue when appropriate
6. Have a happy and comforting ending

Please write a complete story following these guidelines.`

const titleSystemPrompt = `You are an expert in creating captivating titles for children's stories.
Analyze the provided story and create an engaging title, appropriate for children and that captures the essence of the story.`

const titleUserTemplate = `
Based on the following children's story, create a captivating and appropriate title:

%s

The title should:
1. Be engaging and appropriate for children
2. Capture the essence of the story
3. Be between 3-8 words
4. Be easily pronounceable by children
5. Spark curiosity

Respond only with the title, without quotes or additional explanations.`

const suggestionSystemPrompt = `You are a creative storyteller specialized in children's stories.
Continue the provided story with one or two paragraphs that maintain the tone and style of the original story.
The continuation should be appropriate for children and flow naturally with the existing text.`

const suggestionUserTemplate = `
Continue this children's story with a few more paragraphs:

%s

The continuation should:
1. Maintain the same tone and style
2. Be appropriate for children
3. Advance the narrative in an interesting way
4. Be between 100-200 words
5. Flow naturally with the existing text

Write only the continuation, without repeating the original text.`

// GenerationUsecase builds the prompts for story writing assistance and
// forwards them to a completion model.
type GenerationUsecase struct {
	llm    CompletionGateway
	logger *slog.Logger
}

func NewGenerationUsecase(llm CompletionGateway, logger *slog.Logger) *GenerationUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationUsecase{llm: llm, logger: logger.With(slog.String("module", "generation"))}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// StoryCompletion is the request sent for a new story.
func StoryCompletion(p domain.StoryPrompt) domain.Completion {
	return domain.Completion{
		System: storySystemPrompt,
		User: fmt.Sprintf(storyUserTemplate,
			p.Prompt,
			p.Age,
			p.Length,
			orDefault(p.Characters, "age-appropriate characters"),
			orDefault(p.Setting, "a magical and cozy place"),
			orDefault(p.Mood, "cheerful and comforting"),
		),
		MaxTokens:   1000,
		Temperature: 0.7,
	}
}

// TitleCompletion uses at most the first 1000 characters of the story.
func TitleCompletion(content string) domain.Completion {
	runes := []rune(content)
	excerpt := content
	if len(runes) > titleInputLimit {
		excerpt = string(runes[:titleInputLimit]) + " ..."
	}
	return domain.Completion{
		System:      titleSystemPrompt,
		User:        fmt.Sprintf(titleUserTemplate, excerpt),
		MaxTokens:   50,
		Temperature: 0.8,
	}
}

// SuggestionCompletion uses at most the last 800 characters of the text.
func SuggestionCompletion(current string) domain.Completion {
	runes := []rune(current)
	excerpt := current
	if len(runes) > suggestionInputLimit {
		excerpt = string(runes[len(runes)-suggestionInputLimit:]) + " ..."
	}
	return domain.Completion{
		System:      suggestionSystemPrompt,
		User:        fmt.Sprintf(suggestionUserTemplate, excerpt),
		MaxTokens:   300,
		Temperature: 0.8,
	}
}

func (u *GenerationUsecase) GenerateStory(ctx context.Context, p domain.StoryPrompt) (domain.GeneratedStory, error) {
	ctx, span := tracer.Start(ctx, "Generation.GenerateStory")
	defer span.End()

	if strings.TrimSpace(p.Prompt) == "" {
		return domain.GeneratedStory{}, domain.ValidationError{Field: "prompt", Reason: "prompt is required"}
	}

	res, err := u.llm.Complete(ctx, StoryCompletion(p))
	if err != nil {
		u.logger.ErrorContext(ctx, "story generation failed", slog.String("error", err.Error()))
		return domain.GeneratedStory{}, err
	}
	story := strings.TrimSpace(res.Text)
	if story == "" {
		return domain.GeneratedStory{}, fmt.Errorf("model %s returned an empty story", res.Model)
	}

	u.logger.InfoContext(ctx, "story generated",
		slog.String("model", res.Model),
		slog.Int("chars", len(story)),
		slog.Int("total_tokens", res.Usage.TotalTokens),
	)
	return domain.GeneratedStory{
		Story: story,
		Metadata: domain.StoryMetadata{
			Model:            res.Model,
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
	}, nil
}

func (u *GenerationUsecase) GenerateTitle(ctx context.Context, content string) (string, error) {
	ctx, span := tracer.Start(ctx, "Generation.GenerateTitle")
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return "", domain.ValidationError{Field: "storyContent", Reason: "story content is required"}
	}
	res, err := u.llm.Complete(ctx, TitleCompletion(content))
	if err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(res.Text), `"`)
	if title == "" {
		return "", fmt.Errorf("model %s returned an empty title", res.Model)
	}
	return title, nil
}

func (u *GenerationUsecase) GenerateSuggestion(ctx context.Context, current string) (string, error) {
	ctx, span := tracer.Start(ctx, "Generation.GenerateSuggestion")
	defer span.End()

	if strings.TrimSpace(current) == "" {
		return "", domain.ValidationError{Field: "currentText", Reason: "current text is required"}
	}
	res, err := u.llm.Complete(ctx, SuggestionCompletion(current))
	if err != nil {
		return "", err
	}
	suggestion := strings.TrimSpace(res.Text)
	if suggestion == "" {
		return "", fmt.Errorf("model %s returned an empty suggestion", res.Model)
	}
	return suggestion, nil
}
