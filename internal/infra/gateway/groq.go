package gateway

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/storynest/storynest/internal/domain"
)

var tracer = otel.Tracer("gateway")

const (
	GroqEndpoint     = "https://api.groq.com/openai/v1/chat/completions"
	GroqDefaultModel = "llama-3.3-70b-versatile"
)

// Groq is a CompletionGateway for Groq's OpenAI-compatible chat API.
type Groq struct {
	http     jsonClient
	apiKey   string
	model    string
	endpoint string
}

func NewGroq(apiKey, model, endpoint string, client *http.Client) *Groq {
	if model == "" {
		model = GroqDefaultModel
	}
	if endpoint == "" {
		endpoint = GroqEndpoint
	}
	return &Groq{
		http:     newJSONClient("groq", client),
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage domain.Usage `json:"usage"`
}

func (g *Groq) Complete(ctx context.Context, req domain.Completion) (domain.CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Groq.Complete")
	defer span.End()

	if g.apiKey == "" {
		return domain.CompletionResult{}, errors.New("groq api key not configured")
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	var resp chatResponse
	err := g.http.postJSON(ctx, g.endpoint, map[string]string{
		"Authorization": "Bearer " + g.apiKey,
	}, chatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, &resp)
	if err != nil {
		span.RecordError(err)
		return domain.CompletionResult{}, err
	}
	if len(resp.Choices) == 0 {
		return domain.CompletionResult{}, errors.New("groq returned no choices")
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	span.SetAttributes(attribute.Int("tokens.total", resp.Usage.TotalTokens))
	return domain.CompletionResult{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: resp.Usage,
	}, nil
}
