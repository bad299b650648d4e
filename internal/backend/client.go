package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wzyjerry/data-agent-web/internal/model"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every backend call; analyses can run for minutes.
const DefaultTimeout = 300 * time.Second

// Messages shown when an error carries no backend detail.
const (
	MsgNetworkError = "网络错误，请检查后端服务是否可用"
	MsgRequestError = "请求失败"
)

// ErrEmptyID is returned before any network call when a required id is blank.
var ErrEmptyID = errors.New("id must not be empty")

// Config configures the backend client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// Client talks to the analysis backend. It never retries and never caches.
type Client struct {
	config     Config
	httpClient *http.Client
	log        *zap.Logger
}

// New creates a backend client.
func New(config Config, log *zap.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = "data-agent-web/1.0"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		log: log.With(zap.String("component", "backend")),
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request represents an HTTP request to be made.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        io.Reader
	ContentType string
}

// Response wraps a successful HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals the response body into the given target.
func (r *Response) JSON(target any) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError is the uniform failure of a backend call. Status is zero when no
// response was received.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Detail  string
	Payload model.Value
	Err     error
}

func (e *APIError) Error() string {
	if e.Transport() {
		return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.Path, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Transport reports whether the call failed before any response arrived.
func (e *APIError) Transport() bool {
	return e.Status == 0
}

// NotFound reports whether the backend answered 404.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// Message converts an error into the text a page shows: the backend's detail
// verbatim when present, a network message for transport failures, otherwise
// the fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if apiErr.Transport() {
			return MsgNetworkError
		}
	}
	if fallback == "" {
		return MsgRequestError
	}
	return fallback
}

// Do executes a single request. Non-2xx answers and transport failures are
// returned as *APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.config.BaseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, req.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	c.log.Debug("backend request",
		zap.String("method", req.Method),
		zap.String("path", req.Path))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Error("backend unreachable",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &APIError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Method: req.Method, Path: req.Path, Err: fmt.Errorf("read response: %w", err)}
	}

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: req.Method, Path: req.Path, Status: resp.StatusCode}
		apiErr.Payload, apiErr.Detail = parseErrorBody(body)
		c.log.Warn("backend rejected request", append(fields, zap.String("detail", apiErr.Detail))...)
		return nil, apiErr
	}

	c.log.Debug("backend response", fields...)
	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// parseErrorBody extracts the backend's error payload and its human-readable
// detail. FastAPI answers {"detail": "..."}; validation errors carry a list.
func parseErrorBody(body []byte) (model.Value, string) {
	var payload model.Value
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &payload) != nil {
		return model.Value{}, ""
	}
	if detail, ok := payload.Field("detail").AsString(); ok {
		return payload, detail
	}
	if msg, ok := payload.Field("error").AsString(); ok {
		return payload, msg
	}
	if first := payload.Field("detail").Index(0); !first.IsNull() {
		if msg, ok := first.Field("msg").AsString(); ok {
			return payload, msg
		}
	}
	return payload, ""
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return resp.JSON(target)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, query url.Values, payload, target any) error {
	req := &Request{Method: method, Path: path, Query: query}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		req.Body = bytes.NewReader(raw)
		req.ContentType = "application/json"
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if target == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return resp.JSON(target)
}

// segment escapes one path segment.
func segment(id string) string {
	return url.PathEscape(id)
}
