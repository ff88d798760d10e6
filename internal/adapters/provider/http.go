// Package provider implements core.Provider adapters for model endpoints.
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
)

// HTTPProvider calls an OpenAI-compatible chat completions endpoint.
// Screenshots travel as base64 data URLs in the message content; the
// model's JSON reply is normalized into a typed stage payload before it
// leaves this adapter.
type HTTPProvider struct {
	name     string
	endpoint string
	apiKey   string
	model    string
	vision   bool
	client   *http.Client
}

// Option configures an HTTPProvider.
type Option func(*HTTPProvider)

// WithHTTPClient replaces the HTTP client (used by tests).
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// New creates an HTTP provider.
func New(name, endpoint, apiKey, model string, vision bool, opts ...Option) *HTTPProvider {
	p := &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		vision:   vision,
		// No client-level timeout: per-call deadlines come from ctx.
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *HTTPProvider) Name() string { return p.name }

// Capabilities returns what the provider can do.
func (p *HTTPProvider) Capabilities() core.Capabilities {
	return core.Capabilities{
		SupportsVision: p.vision,
		SupportsJSON:   true,
		DefaultModel:   p.model,
		MaxImageBytes:  20 << 20,
	}
}

// Ping checks that the endpoint is reachable and the key is accepted.
func (p *HTTPProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return core.ErrNetwork("building ping request").WithCause(err)
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return core.ErrNetwork(fmt.Sprintf("provider %s unreachable", p.name)).WithCause(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return core.ErrAuth(fmt.Sprintf("provider %s rejected credentials", p.name))
	}
	return nil
}

// chat completions wire format
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Invoke performs one model call and normalizes the response.
func (p *HTTPProvider) Invoke(ctx context.Context, req core.InvokeRequest) (*core.Payload, error) {
	if len(req.Image) > 0 && !p.vision {
		return nil, core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("provider %s does not support vision input", p.name))
	}

	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, core.ErrProvider(p.name, "encoding request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.ErrNetwork("building request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.authorize(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.ErrNetwork(fmt.Sprintf("calling provider %s", p.name)).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, core.ErrNetwork(fmt.Sprintf("reading response from %s", p.name)).WithCause(err)
	}

	if err := classifyStatus(p.name, resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, parseError(p.name, "response is not valid JSON", err)
	}
	if chatResp.Error != nil {
		return nil, core.ErrProvider(p.name, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, parseError(p.name, "response contains no choices", nil)
	}

	return ParsePayload(p.name, req.Stage, chatResp.Choices[0].Message.Content)
}

func (p *HTTPProvider) buildRequest(req core.InvokeRequest) chatRequest {
	messages := []chatMessage{
		{Role: "system", Content: req.SystemPrompt},
	}

	if len(req.Image) > 0 {
		contentType := req.ImageType
		if contentType == "" {
			contentType = "image/png"
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s",
			contentType, base64.StdEncoding.EncodeToString(req.Image))
		messages = append(messages, chatMessage{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		})
	} else {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	}

	return chatRequest{Model: p.model, Messages: messages}
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// classifyStatus maps HTTP status codes onto the error taxonomy.
func classifyStatus(name string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrAuth(fmt.Sprintf("provider %s rejected credentials", name))
	case status == http.StatusTooManyRequests:
		return core.ErrProvider(name, "rate limited").WithDetail("status", status)
	case status >= 500:
		return core.ErrProvider(name, fmt.Sprintf("server error (status %d)", status)).
			WithDetail("status", status).
			WithDetail("body", truncate(string(body), 500))
	default:
		return core.ErrProvider(name, fmt.Sprintf("unexpected status %d", status)).
			WithDetail("status", status).
			WithDetail("body", truncate(string(body), 500))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
