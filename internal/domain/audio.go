package domain

import "time"

// Audio is a narration stored for a story.
type Audio struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	StoryID   string    `json:"storyId"`
	AudioURL  string    `json:"audioUrl"`
	Filename  string    `json:"filename"`
	Duration  float64   `json:"duration,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AudioFromRecord canonicalizes a raw audios document.
func AudioFromRecord(r Record) Audio {
	a := Audio{
		ID:       r.ID,
		UserID:   r.String(FieldUserID),
		StoryID:  r.String(FieldStoryID),
		AudioURL: r.String(FieldAudioURL),
		Filename: r.String("filename"),
		Duration: r.Float("duration"),
	}
	a.CreatedAt, _ = ParseTimestamp(r.Fields[FieldCreatedAt])
	return a
}

// Voice is a speech-synthesis voice offered to parents.
type Voice struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Gender       string `json:"gender"`
	LanguageCode string `json:"languageCode"`
}

// Default narration settings.
const (
	DefaultVoice        = "en-US-Wavenet-D"
	DefaultLanguageCode = "en-US"
)

// VoiceOptions is the catalog of supported narration voices.
var VoiceOptions = []Voice{
	{ID: "en-US-Wavenet-A", Label: "Female (US)", Gender: "female", LanguageCode: "en-US"},
	{ID: "en-US-Wavenet-D", Label: "Male (US)", Gender: "male", LanguageCode: "en-US"},
	{ID: "en-GB-Wavenet-A", Label: "Female (UK)", Gender: "female", LanguageCode: "en-GB"},
	{ID: "en-GB-Wavenet-D", Label: "Male (UK)", Gender: "male", LanguageCode: "en-GB"},
	{ID: "en-AU-Wavenet-A", Label: "Female (Australian)", Gender: "female", LanguageCode: "en-AU"},
	{ID: "en-AU-Wavenet-D", Label: "Male (Australian)", Gender: "male", LanguageCode: "en-AU"},
}

// AudioUpload is a synthesized narration to persist for a story.
type AudioUpload struct {
	AudioContent string  `json:"audioContent" validate:"required,base64"`
	UserID       string  `json:"userId,omitempty"`
	StoryID      string  `json:"storyId" validate:"required"`
	Duration     float64 `json:"duration,omitempty" validate:"gte=0"`
}
