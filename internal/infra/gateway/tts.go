package gateway

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/storynest/storynest/internal/domain"
)

const GoogleTTSEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleTTS is the SpeechGateway for Google Cloud Text-to-Speech.
type GoogleTTS struct {
	http     jsonClient
	apiKey   string
	endpoint string
}

func NewGoogleTTS(apiKey, endpoint string, client *http.Client) *GoogleTTS {
	if endpoint == "" {
		endpoint = GoogleTTSEndpoint
	}
	return &GoogleTTS{http: newJSONClient("google-tts", client), apiKey: apiKey, endpoint: endpoint}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize returns base64 MP3 audio. Zero-valued request options take
// the service defaults.
func (t *GoogleTTS) Synthesize(ctx context.Context, req domain.SpeechRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.GoogleTTS.Synthesize")
	defer span.End()

	if t.apiKey == "" {
		return "", errors.New("google tts api key not configured")
	}

	var body synthesizeRequest
	body.Input.Text = req.Text
	body.Voice.LanguageCode = req.LanguageCode
	if body.Voice.LanguageCode == "" {
		body.Voice.LanguageCode = domain.DefaultLanguageCode
	}
	body.Voice.Name = req.Voice
	if body.Voice.Name == "" {
		body.Voice.Name = domain.DefaultVoice
	}
	body.AudioConfig.AudioEncoding = "MP3"
	body.AudioConfig.SpeakingRate = req.SpeakingRate
	if body.AudioConfig.SpeakingRate == 0 {
		body.AudioConfig.SpeakingRate = 1.0
	}
	body.AudioConfig.Pitch = req.Pitch

	var resp synthesizeResponse
	if err := t.http.postJSON(ctx, t.endpoint, map[string]string{"X-Goog-Api-Key": t.apiKey}, body, &resp); err != nil {
		span.RecordError(err)
		return "", err
	}
	if resp.AudioContent == "" {
		return "", errors.New("google tts returned no audio")
	}
	return resp.AudioContent, nil
}
