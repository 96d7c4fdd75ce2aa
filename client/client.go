// Package client is a small HTTP client for the storynest API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/storynest/storynest/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	voicesKey      = "voices"
)

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	baseURL   string
	token     string
	userAgent string
}

type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "storynest-client/1.0",
	}
	httpClient.Transport = c
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storynest: %d %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, response any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if response == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Voices returns the narration voice catalog. The catalog is cached.
func (c *Client) Voices(ctx context.Context) ([]domain.Voice, error) {
	if x, found := c.cache.Get(voicesKey); found {
		return x.([]domain.Voice), nil
	}
	var voices []domain.Voice
	if err := c.do(ctx, http.MethodGet, "/api/v1/voices", nil, &voices); err != nil {
		return nil, err
	}
	c.cache.Set(voicesKey, voices, cache.DefaultExpiration)
	return voices, nil
}

// ListOptions narrows a child's story list. Zero values mean all stories.
type ListOptions struct {
	Status string
	Query  string
}

func (o ListOptions) encode() string {
	q := url.Values{}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Query != "" {
		q.Set("q", o.Query)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ChildStories(ctx context.Context, childID string, opts ListOptions) ([]domain.Story, error) {
	var stories []domain.Story
	path := "/api/v1/children/" + url.PathEscape(childID) + "/stories" + opts.encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (c *Client) FamilyStories(ctx context.Context) ([]domain.Story, error) {
	var stories []domain.Story
	if err := c.do(ctx, http.MethodGet, "/api/v1/family/stories", nil, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (c *Client) Story(ctx context.Context, id string) (domain.Story, error) {
	var story domain.Story
	err := c.do(ctx, http.MethodGet, "/api/v1/stories/"+url.PathEscape(id), nil, &story)
	return story, err
}

func (c *Client) CreateStory(ctx context.Context, in domain.StoryInput) (domain.Story, error) {
	var story domain.Story
	err := c.do(ctx, http.MethodPost, "/api/v1/stories", in, &story)
	return story, err
}

func (c *Client) DeleteStory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/stories/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GenerateStory(ctx context.Context, prompt domain.StoryPrompt) (domain.GeneratedStory, error) {
	var story domain.GeneratedStory
	err := c.do(ctx, http.MethodPost, "/api/generate-story", prompt, &story)
	return story, err
}
