package marketintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 90 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient *http.Client
	userAgent  string
}

// WithHTTPClient sets a custom HTTP client. The default client uses a
// 90 second timeout to cover generation latency.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// Client is the market intelligence API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: cfg.httpClient,
		userAgent:  cfg.userAgent,
	}
}

// QueryRequest describes one analysis query. Empty selectors mean no
// narrowing.
type QueryRequest struct {
	Query         string `json:"query"`
	InsuranceType string `json:"insurance_type,omitempty"`
	State         string `json:"state,omitempty"`
}

// Analysis is the generated answer for a query.
type Analysis struct {
	Skill   string `json:"skill"`
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Sources int    `json:"sources"`
}

// Query runs the analysis pipeline for one question.
func (c *Client) Query(ctx context.Context, req QueryRequest) (Analysis, error) {
	var resp Analysis
	err := c.post(ctx, "/v1/query", req, &resp)
	return resp, err
}

// SearchRequest describes a raw retrieval request.
type SearchRequest struct {
	Query         string `json:"query"`
	K             int    `json:"k,omitempty"`
	InsuranceType string `json:"insurance_type,omitempty"`
	State         string `json:"state,omitempty"`
}

// SearchResult is one retrieved document.
type SearchResult struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Rank     int               `json:"rank"`
}

// SearchResponse holds the retrieved documents in rank order.
type SearchResponse struct {
	Items []SearchResult `json:"items"`
	Total int            `json:"total"`
}

// Search retrieves the most similar documents without generation.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.post(ctx, "/v1/search", req, &resp)
	return resp, err
}

// HealthStatus is the service readiness report.
type HealthStatus struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// Health reports service readiness. A degraded status comes back with a
// nil error; only transport failures are errors.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("marketintel: build request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("marketintel: health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return HealthStatus{}, fmt.Errorf("marketintel: decode health response: %w", err)
	}
	return status, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marketintel: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("marketintel: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("marketintel: %s request: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("marketintel: decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = resp.Status
	}
	return apiErr
}
