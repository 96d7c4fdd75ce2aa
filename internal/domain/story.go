package domain

import "time"

// Provenance records which view first supplied a merged story. It is
// informational and never affects de-duplication.
type Provenance string

const (
	ProvenanceNone     Provenance = ""
	ProvenanceDirect   Provenance = "direct"
	ProvenanceGroup    Provenance = "group"
	ProvenanceFallback Provenance = "fallback"
)

// Story is the typed view of a document in the stories collection.
type Story struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	UserID        string     `json:"userId,omitempty"`
	FamilyID      string     `json:"familyId,omitempty"`
	ChildID       *string    `json:"childId,omitempty"`
	IsPublished   bool       `json:"isPublished"`
	IsFavorite    bool       `json:"isFavorite"`
	CoverImageURL string     `json:"coverImageUrl,omitempty"`
	AudioURL      *string    `json:"audioUrl"`
	AudioDuration float64    `json:"audioDuration,omitempty"`
	Prompt        string     `json:"prompt,omitempty"`
	Age           string     `json:"age,omitempty"`
	Length        string     `json:"length,omitempty"`
	Characters    string     `json:"characters,omitempty"`
	Setting       string     `json:"setting,omitempty"`
	Mood          string     `json:"mood,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Source        Provenance `json:"source,omitempty"`
}

// coverImageFields lists the names older writers used for the cover image,
// in order of preference.
var coverImageFields = []string{"coverImageUrl", "imageUrl", "coverImage"}

// StoryFromRecord canonicalizes a raw stories document.
func StoryFromRecord(r Record) Story {
	s := Story{
		ID:            r.ID,
		Title:         r.String("title"),
		Content:       r.String("content"),
		UserID:        r.String(FieldUserID),
		FamilyID:      r.String(FieldFamilyID),
		IsPublished:   r.Bool(FieldIsPublished),
		IsFavorite:    r.Bool(FieldIsFavorite),
		AudioDuration: r.Float("audioDuration"),
		Prompt:        r.String("prompt"),
		Age:           r.String("age"),
		Length:        r.String("length"),
		Characters:    r.String("characters"),
		Setting:       r.String("setting"),
		Mood:          r.String("mood"),
	}
	if s.ID == "" {
		s.ID = r.String(FieldID)
	}
	if child := r.String(FieldChildID); child != "" {
		s.ChildID = &child
	}
	if audio := r.String(FieldAudioURL); audio != "" {
		s.AudioURL = &audio
	}
	for _, field := range coverImageFields {
		if v := r.String(field); v != "" {
			s.CoverImageURL = v
			break
		}
	}
	s.CreatedAt, _ = ParseTimestamp(r.Fields[FieldCreatedAt])
	s.UpdatedAt, _ = ParseTimestamp(r.Fields[FieldUpdatedAt])
	return s
}

// StoryInput holds the caller-editable story fields.
type StoryInput struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Content       string  `json:"content" validate:"required"`
	FamilyID      string  `json:"familyId,omitempty"`
	ChildID       *string `json:"childId,omitempty"`
	IsPublished   bool    `json:"isPublished"`
	IsFavorite    bool    `json:"isFavorite"`
	CoverImageURL string  `json:"coverImageUrl,omitempty"`
	Prompt        string  `json:"prompt,omitempty"`
	Age           string  `json:"age,omitempty"`
	Length        string  `json:"length,omitempty" validate:"omitempty,oneof=short medium long"`
	Characters    string  `json:"characters,omitempty"`
	Setting       string  `json:"setting,omitempty"`
	Mood          string  `json:"mood,omitempty"`
}

// Fields converts the input to store fields. userID is the author.
func (in StoryInput) Fields(userID string) map[string]any {
	fields := map[string]any{
		"title":          in.Title,
		"content":        in.Content,
		FieldUserID:      userID,
		FieldIsPublished: in.IsPublished,
		FieldIsFavorite:  in.IsFavorite,
	}
	optional := map[string]string{
		FieldFamilyID:   in.FamilyID,
		"coverImageUrl": in.CoverImageURL,
		"prompt":        in.Prompt,
		"age":           in.Age,
		"length":        in.Length,
		"characters":    in.Characters,
		"setting":       in.Setting,
		"mood":          in.Mood,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	if in.ChildID != nil && *in.ChildID != "" {
		fields[FieldChildID] = *in.ChildID
	}
	return fields
}

// Story lengths accepted by the generator.
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)
