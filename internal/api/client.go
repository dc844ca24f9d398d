// Package api is the HTTP client for the campusnote REST API.
//
// Every request carries Accept: application/json and, when the session holds
// one, a bearer token. Responses come either bare or wrapped in a
// {status, message, data} envelope; both shapes are accepted.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxResponseBytes bounds decoded API responses. Downloads are streamed.
const maxResponseBytes = 16 << 20

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// Config holds client settings.
type Config struct {
	// BaseURL is the API root, e.g. "https://campus.example.com/api".
	BaseURL string

	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the wait for response headers after the request
	// has been written.
	ReadTimeout time.Duration

	// Logger receives request traces. Nil uses stderr with an [api] prefix.
	Logger *log.Logger
}

// DefaultConfig returns a Config with 30 second connect and read timeouts.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// Client talks to the REST API. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	logger *log.Logger
}

// New creates a Client. tokens may be nil for unauthenticated use.
func New(cfg Config, tokens TokenSource) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", cfg.BaseURL, err)
	}

	def := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout
	transport.ResponseHeaderTimeout = cfg.ReadTimeout

	return &Client{
		base:   base,
		http:   &http.Client{Transport: transport},
		tokens: tokens,
		logger: cfg.Logger,
	}, nil
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.base.String(), "/")
}

// ResolveURL turns a reference found in upload results and attachment
// records into an absolute URL. Rooted paths resolve against the API host,
// other relative paths against the API base. Absolute input is returned as is.
func (c *Client) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

// endpoint resolves an already escaped API path against the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	rel := strings.TrimLeft(path, "/")
	ref := &url.URL{Path: rel}
	if unescaped, err := url.PathUnescape(rel); err == nil {
		ref = &url.URL{Path: unescaped, RawPath: rel}
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// segment escapes one path segment, including the dot segments that would
// otherwise be resolved away.
func segment(id string) string {
	s := url.PathEscape(id)
	if s == "." || s == ".." {
		s = strings.ReplaceAll(s, ".", "%2E")
	}
	return s
}

// do sends a JSON request and returns the raw 2xx response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path)
}

// send executes req and returns the 2xx response body, which must fit in
// maxResponseBytes.
func (c *Client) send(req *http.Request, path string) ([]byte, error) {
	resp, err := c.open(req, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: path, Err: err}
	}
	return data, nil
}

// open executes req with the common headers and error mapping. On success the
// caller owns the returned body.
func (c *Client) open(req *http.Request, path string) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: path, Err: err}
	}
	c.logger.Printf("%s %s -> %d (%s)", req.Method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &RemoteError{
			Method:     req.Method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    envelopeMessage(data),
			Body:       string(data),
		}
	}
	return resp, nil
}

// readLimited reads r fully, failing once more than maxResponseBytes arrive.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}
	return data, nil
}

// envelope is the {status, message, data} wrapper most endpoints use.
type envelope struct {
	Status  any             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func envelopeMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Message
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// decodeList accepts a bare JSON array or an envelope whose data is an
// array. A missing or null data field decodes to an empty list.
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	items := []T{}
	if len(trimmed) == 0 {
		return items, nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return items, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if isNull(env.Data) {
		return items, nil
	}
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode list data: %w", err)
	}
	return items, nil
}

// decodeRecord accepts a bare record or an envelope whose data is a record.
// ok is false when the response carries no record at all.
func decodeRecord[T any](data []byte) (rec T, ok bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return rec, false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return rec, false, fmt.Errorf("failed to decode response: %w", err)
	}

	payload := trimmed
	if raw, wrapped := fields["data"]; wrapped {
		if isNull(raw) {
			return rec, false, nil
		}
		payload = raw
	} else if _, bare := fields["id"]; !bare {
		return rec, false, nil
	}

	if err := json.Unmarshal(payload, &rec); err != nil {
		return rec, false, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, true, nil
}

// IsCanceled reports whether err came from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
