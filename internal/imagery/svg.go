package imagery

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"
)

const textColor = "#2C3E50"

var moodColors = map[string]string{
	"cheerful":    "#FFD700",
	"exciting":    "#FF6347",
	"magical":     "#9370DB",
	"adventurous": "#32CD32",
	"calm":        "#87CEEB",
	"mysterious":  "#4B0082",
	"funny":       "#FFA500",
	"educational": "#20B2AA",
}

var themeEmojis = map[string]string{
	"space":      "🚀",
	"ocean":      "🌊",
	"forest":     "🌲",
	"adventure":  "⚡",
	"magic":      "✨",
	"animals":    "🦁",
	"friendship": "👫",
	"family":     "👨‍👩‍👧‍👦",
}

const defaultEmoji = "📚"

// Illustration is a rendered cover and what it was drawn from.
type Illustration struct {
	ImageURL string   `json:"imageUrl"`
	Prompt   string   `json:"prompt"`
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	Model      string `json:"model"`
	Size       string `json:"size"`
	Characters string `json:"characters"`
	Setting    string `json:"setting"`
	Mood       string `json:"mood"`
	Emoji      string `json:"emoji"`
	BgColor    string `json:"bgColor"`
}

// MoodColor is the background for mood, gold when unknown.
func MoodColor(mood string) string {
	if c, ok := moodColors[strings.ToLower(mood)]; ok {
		return c
	}
	return moodColors["cheerful"]
}

// ThemeEmoji picks the centerpiece for a one-word theme prompt.
func ThemeEmoji(prompt string) string {
	if e, ok := themeEmojis[strings.ToLower(strings.TrimSpace(prompt))]; ok {
		return e
	}
	return defaultEmoji
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return html.EscapeString(string(r))
}

// RenderSVG draws the 512x512 placeholder cover and returns it as a data URL.
func RenderSVG(req Request) Illustration {
	req = req.withDefaults()
	bg := MoodColor(req.Mood)
	emoji := ThemeEmoji(req.Prompt)

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="512" height="512" viewBox="0 0 512 512">`)
	fmt.Fprintf(&b, `<rect width="512" height="512" fill="%s" opacity="0.8"/>`, bg)
	fmt.Fprintf(&b, `<defs><linearGradient id="bg" x1="0%%" y1="0%%" x2="100%%" y2="100%%">`+
		`<stop offset="0%%" style="stop-color:%s;stop-opacity:1"/>`+
		`<stop offset="100%%" style="stop-color:white;stop-opacity:0.5"/>`+
		`</linearGradient></defs>`, bg)
	b.WriteString(`<rect width="512" height="512" fill="url(#bg)"/>`)
	fmt.Fprintf(&b, `<text x="256" y="200" font-size="120" text-anchor="middle" font-family="Arial">%s</text>`, emoji)
	fmt.Fprintf(&b, `<text x="256" y="280" font-size="24" text-anchor="middle" font-family="Arial" fill="%s" font-weight="bold">%s</text>`,
		textColor, clip(req.Prompt, 20))
	if req.Characters != "" {
		fmt.Fprintf(&b, `<text x="256" y="320" font-size="18" text-anchor="middle" font-family="Arial" fill="%s">Characters: %s</text>`,
			textColor, clip(req.Characters, 25))
	}
	if req.Setting != "" {
		fmt.Fprintf(&b, `<text x="256" y="350" font-size="16" text-anchor="middle" font-family="Arial" fill="%s">Setting: %s</text>`,
			textColor, clip(req.Setting, 30))
	}
	fmt.Fprintf(&b, `<text x="256" y="400" font-size="16" text-anchor="middle" font-family="Arial" fill="%s" font-style="italic">Mood: %s</text>`,
		textColor, html.EscapeString(req.Mood))
	for _, c := range [][3]int{{100, 100, 30}, {412, 120, 25}, {80, 400, 20}, {430, 380, 35}} {
		fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="%d" fill="white" opacity="0.3"/>`, c[0], c[1], c[2])
	}
	fmt.Fprintf(&b, `<rect x="10" y="10" width="492" height="492" fill="none" stroke="%s" stroke-width="3" rx="20"/>`, textColor)
	b.WriteString(`</svg>`)

	return Illustration{
		ImageURL: "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(b.String())),
		Prompt:   req.Prompt,
		Metadata: Metadata{
			Model:      "custom-svg",
			Size:       "512x512",
			Characters: req.Characters,
			Setting:    req.Setting,
			Mood:       req.Mood,
			Emoji:      emoji,
			BgColor:    bg,
		},
	}
}
