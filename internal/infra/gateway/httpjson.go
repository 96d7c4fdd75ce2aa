package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/storynest/storynest/internal/domain"
)

const (
	defaultTimeout = 60 * time.Second
	// upstream error bodies are kept for logging only
	maxErrorBody = 4 << 10
)

type jsonClient struct {
	client    *http.Client
	service   string
	userAgent string
}

func newJSONClient(service string, client *http.Client) jsonClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return jsonClient{client: client, service: service, userAgent: "storynest/1.0"}
}

// postJSON sends body as JSON and decodes a 200 response into response.
// Non-200 statuses become *domain.UpstreamError.
func (c jsonClient) postJSON(ctx context.Context, url string, headers map[string]string, body, response any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Cancelled(ctx.Err())
		}
		return errors.Wrapf(err, "%s request", c.service)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.UpstreamError{Service: c.service, Status: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return errors.Wrapf(err, "decode %s response", c.service)
	}
	return nil
}
