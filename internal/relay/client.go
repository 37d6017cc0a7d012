package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running relay.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		token:   token,
	}
}

// ReplyError is the relay's structured failure body.
type ReplyError struct {
	Status  int
	Message string `json:"error"`
	Details string `json:"details"`
}

func (e *ReplyError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("relay: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("relay: %d %s: %s", e.Status, e.Message, e.Details)
}

// Send relays one message and returns the upstream reply body.
func (c *Client) Send(ctx context.Context, userID int64, sessionID, message string) (map[string]any, error) {
	raw, err := json.Marshal(map[string]any{"user_id": userID, "session_id": sessionID, "message": message})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		failure := &ReplyError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(failure)
		return nil, failure
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("relay: decode reply: %w", err)
	}
	return out, nil
}

// ReplyText is the human-readable part of a reply.
func ReplyText(reply map[string]any) string {
	raw, _ := json.Marshal(reply)
	return replyText(raw)
}
