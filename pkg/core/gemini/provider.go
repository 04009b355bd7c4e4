// Package gemini implements the Google Gemini API client.
// It translates between the local message format and Gemini's wire format.
package gemini

import (
	"context"
	"net/http"
	"time"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultMaxTokens is the output token cap applied when a request
	// does not set one.
	DefaultMaxTokens = 8192

	// defaultRequestTimeout bounds non-streaming requests. Streaming
	// requests are bounded by their context instead.
	defaultRequestTimeout = 2 * time.Minute
)

// EventStream is an iterator over streaming events.
// Next returns io.EOF when the stream is complete.
type EventStream interface {
	Next() (types.StreamEvent, error)
	Close() error
}

// Provider implements the Google Gemini API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures the Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// WithTimeout bounds non-streaming requests. Streaming requests are
// bounded only by their context.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// New creates a new Gemini provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		timeout:    defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate sends a non-streaming request to Gemini.
func (p *Provider) Generate(ctx context.Context, req *types.GenerateRequest) (*types.MessageResponse, error) {
	geminiReq := buildRequest(req)

	respBody, err := p.doRequest(ctx, req.Model, geminiReq)
	if err != nil {
		return nil, err
	}

	return parseResponse(respBody, req.Model)
}

// Stream sends a streaming request to Gemini and returns an ordered
// event stream over the SSE response.
func (p *Provider) Stream(ctx context.Context, req *types.GenerateRequest) (EventStream, error) {
	geminiReq := buildRequest(req)

	body, err := p.doStreamRequest(ctx, req.Model, geminiReq)
	if err != nil {
		return nil, err
	}

	return newEventStream(body, req.Model), nil
}

// GenerateImage requests image output from an image-capable model.
// The returned response contains inline image blocks alongside any text.
func (p *Provider) GenerateImage(ctx context.Context, req *types.GenerateRequest) (*types.MessageResponse, error) {
	if len(req.ResponseModalities) == 0 {
		reqCopy := *req
		reqCopy.ResponseModalities = []string{"TEXT", "IMAGE"}
		req = &reqCopy
	}
	return p.Generate(ctx, req)
}
