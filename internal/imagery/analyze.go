// Package imagery turns story details into a child-safe illustration brief
// and renders the placeholder cover used until a real image exists.
package imagery

import (
	"strings"
)

// Request describes the story an illustration is wanted for.
type Request struct {
	StoryText  string `json:"storyText"`
	Prompt     string `json:"prompt"`
	Characters string `json:"characters"`
	Setting    string `json:"setting"`
	Mood       string `json:"mood"`
}

const (
	DefaultPrompt = "A beautiful children's story illustration"
	DefaultMood   = "cheerful"
)

func (r Request) withDefaults() Request {
	if strings.TrimSpace(r.Prompt) == "" {
		r.Prompt = DefaultPrompt
	}
	if strings.TrimSpace(r.Mood) == "" {
		r.Mood = DefaultMood
	}
	return r
}

type keywordGroup struct {
	name     string
	keywords []string
}

// detect returns the names of the groups with at least one keyword in text,
// in table order.
func detect(text string, groups []keywordGroup) []string {
	out := []string{}
	for _, g := range groups {
		for _, k := range g.keywords {
			if strings.Contains(text, k) {
				out = append(out, g.name)
				break
			}
		}
	}
	return out
}

var themeKeywords = []keywordGroup{
	{"friendship", []string{"friend", "buddy", "pal", "together", "help each other"}},
	{"adventure", []string{"adventure", "journey", "explore", "discover", "quest"}},
	{"family", []string{"family", "mom", "dad", "sister", "brother", "parent"}},
	{"magic", []string{"magic", "wizard", "fairy", "spell", "enchanted"}},
	{"learning", []string{"learn", "school", "teach", "lesson", "smart"}},
	{"courage", []string{"brave", "courage", "hero", "strong", "fearless"}},
	{"kindness", []string{"kind", "nice", "help", "care", "gentle"}},
	{"nature", []string{"forest", "ocean", "animals", "trees", "flowers"}},
	{"creativity", []string{"art", "music", "paint", "draw", "create"}},
}

var emotionKeywords = []keywordGroup{
	{"happy", []string{"happy", "joy", "laugh", "smile", "cheerful"}},
	{"excited", []string{"excited", "thrilled", "amazing", "wonderful"}},
	{"curious", []string{"wonder", "curious", "question", "mystery"}},
	{"peaceful", []string{"calm", "quiet", "peaceful", "gentle"}},
	{"proud", []string{"proud", "accomplished", "success", "achievement"}},
}

var objectKeywords = []string{
	"castle", "house", "tree", "flower", "star", "moon", "sun",
	"boat", "car", "train", "airplane", "bicycle",
	"book", "toy", "ball", "game",
}

var characterTypeKeywords = []keywordGroup{
	{"animal", []string{"cat", "dog", "bear", "rabbit", "lion", "elephant", "bird"}},
	{"human", []string{"boy", "girl", "child", "kid", "person", "prince", "princess"}},
	{"fantasy", []string{"dragon", "fairy", "wizard", "unicorn", "elf", "giant"}},
	{"robot", []string{"robot", "android", "machine", "ai"}},
}

var personalityKeywords = []keywordGroup{
	{"friendly", []string{"friendly", "nice", "kind", "gentle"}},
	{"brave", []string{"brave", "courageous", "hero", "strong"}},
	{"funny", []string{"funny", "silly", "hilarious", "joke"}},
	{"smart", []string{"smart", "clever", "wise", "intelligent"}},
	{"curious", []string{"curious", "explorer", "investigator"}},
}

var environmentKeywords = []keywordGroup{
	{"nature", []string{"forest", "woods", "jungle", "mountain", "hill"}},
	{"water", []string{"ocean", "sea", "lake", "river", "beach"}},
	{"urban", []string{"city", "town", "street", "building", "school"}},
	{"fantasy", []string{"castle", "kingdom", "magical land", "enchanted"}},
	{"space", []string{"space", "planet", "galaxy", "stars", "moon"}},
	{"home", []string{"house", "room", "bedroom", "kitchen", "garden"}},
}

var timeOfDayKeywords = []keywordGroup{
	{"day", []string{"day", "morning", "afternoon", "sunny"}},
	{"night", []string{"night", "evening", "dark", "stars"}},
	{"sunset", []string{"sunset", "dusk", "twilight"}},
	{"sunrise", []string{"sunrise", "dawn"}},
}

// StoryElements are the themes, emotions and objects found in the story text.
type StoryElements struct {
	Themes   []string `json:"themes"`
	Emotions []string `json:"emotions"`
	Objects  []string `json:"objects"`
}

type CharacterAnalysis struct {
	Types         []string `json:"characterTypes"`
	Personalities []string `json:"personalities"`
	Original      string   `json:"original"`
}

type SettingAnalysis struct {
	Environments []string `json:"environments"`
	TimeOfDay    []string `json:"timeOfDay"`
	Original     string   `json:"original"`
}

type VisualStyle struct {
	ArtStyle       string `json:"artStyle"`
	ColorIntensity string `json:"colorIntensity"`
	Complexity     string `json:"complexity"`
	Safety         string `json:"safety"`
}

type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
}

var moodStyles = map[string]func(*VisualStyle){
	"cheerful":    func(s *VisualStyle) { s.ColorIntensity, s.Complexity = "vibrant", "playful" },
	"magical":     func(s *VisualStyle) { s.ArtStyle, s.ColorIntensity = "whimsical-fantasy", "sparkly" },
	"adventurous": func(s *VisualStyle) { s.Complexity, s.ColorIntensity = "dynamic", "bold" },
	"calm":        func(s *VisualStyle) { s.ColorIntensity, s.Complexity = "soft-pastels", "gentle" },
	"funny":       func(s *VisualStyle) { s.ArtStyle, s.Complexity = "cartoon-comedy", "exaggerated" },
	"exciting":    func(s *VisualStyle) { s.Complexity, s.ColorIntensity = "energetic", "high-contrast" },
}

var moodPalettes = map[string]Palette{
	"cheerful":    {Primary: "#FFD700", Secondary: "#FF6B6B", Accent: "#4ECDC4"},
	"magical":     {Primary: "#9B59B6", Secondary: "#E8DAEF", Accent: "#FFD700"},
	"adventurous": {Primary: "#52C41A", Secondary: "#40A9FF", Accent: "#FAAD14"},
	"calm":        {Primary: "#87CEEB", Secondary: "#D4F4DD", Accent: "#B7E4F9"},
	"funny":       {Primary: "#FFA726", Secondary: "#FFCA28", Accent: "#AB47BC"},
	"exciting":    {Primary: "#FF5722", Secondary: "#FF9800", Accent: "#4CAF50"},
}

func styleFor(mood string) VisualStyle {
	style := VisualStyle{
		ArtStyle:       "children-book-illustration",
		ColorIntensity: "bright-and-cheerful",
		Complexity:     "simple-and-clear",
		Safety:         "child-safe",
	}
	if apply, ok := moodStyles[strings.ToLower(mood)]; ok {
		apply(&style)
	}
	return style
}

func paletteFor(mood string) Palette {
	p := Palette{Primary: "#4ECDC4", Secondary: "#FFE135", Accent: "#FF6B6B", Background: "#F8F9FA"}
	if m, ok := moodPalettes[strings.ToLower(mood)]; ok {
		p.Primary, p.Secondary, p.Accent = m.Primary, m.Secondary, m.Accent
	}
	return p
}

// Brief is a Request enriched by keyword analysis.
type Brief struct {
	Request
	EnhancedPrompt string      `json:"enhancedPrompt"`
	VisualStyle    VisualStyle `json:"visualStyle"`
	ColorPalette   Palette     `json:"colorPalette"`
	SafetyLevel    string      `json:"safetyLevel"`
	ArtStyle       string      `json:"artStyle"`
	Themes         []string    `json:"themes"`
	AgeAppropriate bool        `json:"ageAppropriate"`

	Elements StoryElements     `json:"-"`
	Cast     CharacterAnalysis `json:"-"`
	Scenery  SettingAnalysis   `json:"-"`
}

// Analyze scans the story, characters and setting for keywords and builds
// the illustration brief. Matching is case-insensitive and the output order
// follows the keyword tables.
func Analyze(req Request) Brief {
	original := req
	req = req.withDefaults()

	story := strings.ToLower(req.StoryText)
	elements := StoryElements{
		Themes:   detect(story, themeKeywords),
		Emotions: detect(story, emotionKeywords),
		Objects:  []string{},
	}
	for _, obj := range objectKeywords {
		if strings.Contains(story, obj) {
			elements.Objects = append(elements.Objects, obj)
		}
	}

	castText := strings.ToLower(original.Characters + " " + req.StoryText)
	cast := CharacterAnalysis{
		Types:         detect(castText, characterTypeKeywords),
		Personalities: detect(castText, personalityKeywords),
		Original:      original.Characters,
	}

	sceneText := strings.ToLower(original.Setting + " " + req.StoryText)
	scenery := SettingAnalysis{
		Environments: detect(sceneText, environmentKeywords),
		TimeOfDay:    detect(sceneText, timeOfDayKeywords),
		Original:     original.Setting,
	}

	style := styleFor(req.Mood)
	return Brief{
		Request: Request{
			StoryText:  req.StoryText,
			Prompt:     req.Prompt,
			Characters: formatCharacters(cast),
			Setting:    formatSetting(scenery),
			Mood:       req.Mood,
		},
		EnhancedPrompt: EnhancedPrompt(original.Prompt, req.Mood, elements, cast, scenery),
		VisualStyle:    style,
		ColorPalette:   paletteFor(req.Mood),
		SafetyLevel:    "child-safe",
		ArtStyle:       style.ArtStyle,
		Themes:         elements.Themes,
		AgeAppropriate: true,
		Elements:       elements,
		Cast:           cast,
		Scenery:        scenery,
	}
}

func formatCharacters(c CharacterAnalysis) string {
	if c.Original == "" {
		return ""
	}
	if len(c.Personalities) == 0 {
		return c.Original
	}
	return c.Original + " (" + strings.Join(c.Personalities, ", ") + ")"
}

func formatSetting(s SettingAnalysis) string {
	if s.Original == "" {
		return ""
	}
	if len(s.TimeOfDay) == 0 {
		return s.Original
	}
	return s.Original + " during " + s.TimeOfDay[0]
}

// EnhancedPrompt composes the text-to-image prompt.
func EnhancedPrompt(prompt, mood string, elements StoryElements, cast CharacterAnalysis, scenery SettingAnalysis) string {
	var b strings.Builder
	b.WriteString("children's book illustration, ")
	b.WriteString(mood)
	b.WriteString(" mood")
	if len(cast.Types) > 0 {
		b.WriteString(", featuring ")
		b.WriteString(strings.Join(cast.Types, " and "))
		b.WriteString(" characters")
	}
	if len(scenery.Environments) > 0 {
		b.WriteString(", set in ")
		b.WriteString(scenery.Environments[0])
		b.WriteString(" environment")
	}
	if len(elements.Themes) > 0 {
		themes := elements.Themes
		if len(themes) > 2 {
			themes = themes[:2]
		}
		b.WriteString(", themes of ")
		b.WriteString(strings.Join(themes, " and "))
	}
	b.WriteString(", ")
	b.WriteString(prompt)
	b.WriteString(", bright colors, safe for children, no scary elements")
	return b.String()
}
