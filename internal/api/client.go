// Package api is the typed client for the to-do REST backend. It never
// touches local state; callers decide what to do with the confirmed entities
// it returns.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/tasksync/internal/logging"
)

// TokenSource supplies the bearer token for authenticated requests. An empty
// token means the caller is signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Revision string

const (
	RevisionPhase2 Revision = "phase2"
	RevisionPhase3 Revision = "phase3"
)

type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	logger   *log.Logger
	revision Revision
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRevision(r Revision) Option {
	return func(c *Client) {
		if r != "" {
			c.revision = r
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logging.Discard(),
		revision: RevisionPhase3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Revision() Revision { return c.revision }

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// anonymous requests skip the Authorization header.
	anonymous bool
}

func (c *Client) jsonRequest(method, path string, query url.Values, payload any) (request, error) {
	req := request{method: method, path: path, query: query}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return request{}, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.body = bytes.NewReader(raw)
		req.contentType = "application/json"
	}
	return req, nil
}

// do sends r and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.anonymous {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readFailure(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(token), nil
}

// readFailure prefers the backend's "detail" message and falls back to the
// status text.
func readFailure(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		var detail string
		switch {
		case len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "":
			msg = detail
		case body.Error != "":
			msg = body.Error
		}
	}
	return &RequestFailed{Status: resp.StatusCode, Message: msg}
}

func userPath(userID int64, parts ...string) string {
	p := fmt.Sprintf("/api/%d", userID)
	for _, part := range parts {
		p += "/" + strings.Trim(part, "/")
	}
	return p
}
