// Package api is the REST client for the training API.
package api

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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnauthorized matches any 401 response. The token source has already
	// been invalidated when it is returned.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches any 404 response.
	ErrNotFound = errors.New("not found")
)

// Error is a non-success API response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s %s returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is lets errors.Is match the status sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// TokenSource supplies the bearer token and is told when the server rejects it.
type TokenSource interface {
	Token() string
	Invalidate()
}

// RequestIDHeader carries a per-request id for correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

// Client calls the training API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     logrus.FieldLogger
}

// NewClientArg holds the arguments for creating a Client.
type NewClientArg struct {
	BaseURL    string
	HTTPClient *http.Client  // defaults to a new client with Timeout
	Timeout    time.Duration // ignored when HTTPClient is set; zero means none
	Tokens     TokenSource   // may be nil for anonymous use
	Logger     logrus.FieldLogger
}

// NewClient creates a Client for args.BaseURL.
func NewClient(args NewClientArg) *Client {
	if args.Logger == nil {
		panic("APIClient: logger cannot be nil")
	}
	if args.BaseURL == "" {
		panic("APIClient: base URL cannot be empty")
	}
	httpClient := args.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: args.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(args.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     args.Tokens,
		logger:     args.Logger,
	}
}

// envelope is the response wrapper used by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// do sends one request. body is JSON-encoded when non-nil; the envelope's data
// is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.WithFields(logrus.Fields{"method": method, "path": path, "request_id": requestID})
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugf("APIClient: request failed: %v", err)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s body: %w", path, err)
	}
	log.Debugf("APIClient: %d in %s", resp.StatusCode, time.Since(started).Round(time.Millisecond))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{Method: method, Path: path, StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.text()
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && token != "" {
			log.Warnf("APIClient: token rejected, invalidating session")
			c.tokens.Invalidate()
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("api: decode %s envelope: %w", path, decodeErr)
	}
	if !env.Success {
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Message: env.text()}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("api: decode %s data: %w", path, err)
	}
	return nil
}
