package domain

// StoryPrompt describes the story a parent asks the generator for.
type StoryPrompt struct {
	Prompt     string `json:"prompt" validate:"required,max=2000"`
	Age        string `json:"age"`
	Length     string `json:"length"`
	Characters string `json:"characters"`
	Setting    string `json:"setting"`
	Mood       string `json:"mood"`
}

// Completion is one request to a chat-completion model.
type Completion struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// CompletionResult is the text a model returned plus its token accounting.
type CompletionResult struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Usage mirrors the token counts reported by OpenAI-compatible APIs.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GeneratedStory is returned by the story generator.
type GeneratedStory struct {
	Story    string        `json:"story"`
	Metadata StoryMetadata `json:"metadata"`
}

// StoryMetadata is reported alongside a generated story.
type StoryMetadata struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// SpeechRequest asks for narration of text.
type SpeechRequest struct {
	Text         string  `json:"text" validate:"required,max=5000"`
	Voice        string  `json:"voice"`
	LanguageCode string  `json:"languageCode"`
	SpeakingRate float64 `json:"speakingRate,omitempty"`
	Pitch        float64 `json:"pitch,omitempty"`
}
