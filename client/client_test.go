package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientSendsCredentials(t *testing.T) {
	var auth, agent, query string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/children/{id}/stories", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		agent = r.Header.Get("User-Agent")
		query = r.URL.RawQuery
		writeJSON(w, http.StatusOK, []domain.Story{{ID: "s1", Title: "Owl"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL+"/", WithToken("tok"))
	stories, err := c.ChildStories(context.Background(), "k1", ListOptions{Status: "favorites", Query: "owl"})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "Owl", stories[0].Title)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "storynest-client/1.0", agent)
	assert.Equal(t, "q=owl&status=favorites", query)
}

func TestClientCachesVoices(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, domain.VoiceOptions)
	}))
	defer srv.Close()

	c := New(srv.URL)
	for range 3 {
		voices, err := c.Voices(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.VoiceOptions, voices)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stories/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Story(context.Background(), "s1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "forbidden", apiErr.Message)

	err = c.Health(context.Background())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestClientWrites(t *testing.T) {
	var created domain.StoryInput
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/stories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		writeJSON(w, http.StatusCreated, domain.Story{ID: "new", Title: created.Title})
	})
	mux.HandleFunc("DELETE /api/v1/stories/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.PathValue("id")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/generate-story", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.GeneratedStory{Story: "Once", Metadata: domain.StoryMetadata{Model: "m"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	story, err := c.CreateStory(ctx, domain.StoryInput{Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.Equal(t, "new", story.ID)
	assert.Equal(t, "C", created.Content)

	require.NoError(t, c.DeleteStory(ctx, "new"))
	assert.Equal(t, "new", deleted)

	generated, err := c.GenerateStory(ctx, domain.StoryPrompt{Prompt: "owls"})
	require.NoError(t, err)
	assert.Equal(t, "Once", generated.Story)
	assert.Equal(t, "m", generated.Metadata.Model)
}
