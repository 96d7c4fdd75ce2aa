package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
)

func TestGroqComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"model": "llama-3.3-70b-versatile",
			"choices": [{"message": {"role": "assistant", "content": "Once upon a time"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	g := NewGroq("key", "", srv.URL, srv.Client())
	res, err := g.Complete(context.Background(), domain.Completion{
		System: "sys", User: "tell me", MaxTokens: 1000, Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Once upon a time", res.Text)
	assert.Equal(t, 15, res.Usage.TotalTokens)
	assert.Equal(t, GroqDefaultModel, got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, []chatMessage{{Role: "system", Content: "sys"}, {Role: "user", Content: "tell me"}}, got.Messages)
}

func TestGroqUpstreamStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"nope"}`, status)
		}))

		_, err := NewGroq("key", "", srv.URL, srv.Client()).Complete(context.Background(), domain.Completion{User: "x"})
		var upstream *domain.UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, status, upstream.Status)
		assert.Equal(t, "groq", upstream.Service)
		assert.Contains(t, upstream.Body, "nope")
		srv.Close()
	}
}

func TestGroqRequiresKey(t *testing.T) {
	_, err := NewGroq("", "", "http://127.0.0.1:1", nil).Complete(context.Background(), domain.Completion{User: "x"})
	assert.Error(t, err)
}

func TestGroqCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGroq("key", "", srv.URL, srv.Client()).Complete(ctx, domain.Completion{User: "x"})
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestGoogleTTSDefaults(t *testing.T) {
	var got synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tts-key", r.Header.Get("X-Goog-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"audioContent":"QUJD"}`))
	}))
	defer srv.Close()

	tts := NewGoogleTTS("tts-key", srv.URL, srv.Client())
	audio, err := tts.Synthesize(context.Background(), domain.SpeechRequest{Text: "Good night"})
	require.NoError(t, err)

	assert.Equal(t, "QUJD", audio)
	assert.Equal(t, "Good night", got.Input.Text)
	assert.Equal(t, domain.DefaultLanguageCode, got.Voice.LanguageCode)
	assert.Equal(t, domain.DefaultVoice, got.Voice.Name)
	assert.Equal(t, "MP3", got.AudioConfig.AudioEncoding)
	assert.Equal(t, 1.0, got.AudioConfig.SpeakingRate)
	assert.Equal(t, 0.0, got.AudioConfig.Pitch)
}

func TestGoogleTTSErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewGoogleTTS("k", srv.URL, srv.Client()).Synthesize(context.Background(), domain.SpeechRequest{Text: "x"})
	assert.Error(t, err)

	_, err = NewGoogleTTS("", srv.URL, srv.Client()).Synthesize(context.Background(), domain.SpeechRequest{Text: "x"})
	assert.Error(t, err)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}
