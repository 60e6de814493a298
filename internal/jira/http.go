package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wahlandcase/commitgate/internal/config"
)

const restAPIPath = "/rest/api/2"

// HTTPTransport talks to a Jira REST v2 API
type HTTPTransport struct {
	baseURL   string
	user      string
	token     string
	reauthURL string
	client    *http.Client
	limiter   *rate.Limiter
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithBasicAuth authenticates with user and token
func WithBasicAuth(user, token string) HTTPOption {
	return func(t *HTTPTransport) {
		t.user = user
		t.token = token
	}
}

// WithBearerToken authenticates with a personal access token
func WithBearerToken(token string) HTTPOption {
	return func(t *HTTPTransport) {
		t.user = ""
		t.token = token
	}
}

// WithReauthURL sets the URL reported in AuthRequiredError
func WithReauthURL(url string) HTTPOption {
	return func(t *HTTPTransport) {
		t.reauthURL = url
	}
}

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithRateLimit caps requests per second, zero meaning unlimited
func WithRateLimit(perSecond float64) HTTPOption {
	return func(t *HTTPTransport) {
		if perSecond <= 0 {
			t.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewHTTPTransport creates a transport for the server rooted at serverURL
func NewHTTPTransport(serverURL string, opts ...HTTPOption) *HTTPTransport {
	serverURL = strings.TrimRight(serverURL, "/")
	t := &HTTPTransport{
		baseURL:   serverURL + restAPIPath,
		reauthURL: serverURL,
		client:    http.DefaultClient,
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BackendsFromConfig builds one HTTP backend per configured entry, in order
func BackendsFromConfig(cfgs []config.BackendConfig) []*Backend {
	backends := make([]*Backend, 0, len(cfgs))
	for _, c := range cfgs {
		opts := []HTTPOption{
			WithReauthURL(c.ReauthURL()),
			WithRateLimit(c.RequestsPerSecond),
		}
		if token := c.Token(); token != "" {
			if c.User != "" {
				opts = append(opts, WithBasicAuth(c.User, token))
			} else {
				opts = append(opts, WithBearerToken(token))
			}
		}
		if timeout := c.Timeout(); timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: timeout}))
		}
		backends = append(backends, NewBackend(c.Name, NewHTTPTransport(c.URL, opts...)))
	}
	return backends
}

// Get performs a GET against path
func (t *HTTPTransport) Get(ctx context.Context, path string) ([]byte, error) {
	return t.do(ctx, http.MethodGet, path, nil)
}

// Post sends body as JSON to path
func (t *HTTPTransport) Post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &UnknownError{Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}
	return t.do(ctx, http.MethodPost, path, payload)
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Message: "rate limiter wait failed", Cause: err}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, &UnknownError{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	t.authenticate(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Message: "request to " + t.baseURL + " failed", Cause: err}
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, &TransportError{Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	return nil, t.classifyStatus(resp, respBody)
}

func (t *HTTPTransport) authenticate(req *http.Request) {
	switch {
	case t.token == "":
	case t.user != "":
		req.SetBasicAuth(t.user, t.token)
	default:
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
}

// errorBody is the Jira error format: { errorMessages: [...], errors: {...} }
type errorBody struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func (t *HTTPTransport) classifyStatus(resp *http.Response, body []byte) LookupError {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &AuthRequiredError{ReauthURI: t.reauthURL}
	case http.StatusNotFound:
		return &NotFoundError{Resource: resp.Request.URL.Path}
	}

	diagnostics := parseDiagnostics(body)
	text := resp.Status
	if len(diagnostics) > 0 {
		text = strings.Join(diagnostics, ", ")
	}
	return &StatusError{
		Code:        resp.StatusCode,
		Text:        text,
		Diagnostics: diagnostics,
	}
}

func parseDiagnostics(body []byte) []string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}

	diagnostics := append([]string(nil), parsed.ErrorMessages...)
	fields := make([]string, 0, len(parsed.Errors))
	for field := range parsed.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		diagnostics = append(diagnostics, field+": "+parsed.Errors[field])
	}
	return diagnostics
}
