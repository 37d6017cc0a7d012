// Package relay is the chat proxy: it forwards chat messages, with the
// caller's Authorization header, to the upstream conversational endpoint
// and returns its JSON unchanged.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/sandeepkv93/tasksync/internal/logging"
)

const (
	missingFieldsMessage = "Missing required fields: user_id, session_id, or message"
	failedMessage        = "Failed to process chat message"

	maxReplyBytes = 1 << 20
	maxErrorBytes = 64 << 10
)

type Options struct {
	UpstreamURL string
	HTTPClient  *http.Client
	// Transcript is optional; without it history is always empty.
	Transcript *Transcript
	Logger     *log.Logger
}

type Server struct {
	upstream   string
	http       *http.Client
	transcript *Transcript
	logger     *log.Logger
	router     *gin.Engine
}

func NewServer(opts Options) *Server {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	s := &Server{
		upstream:   opts.UpstreamURL,
		http:       opts.HTTPClient,
		transcript: opts.Transcript,
		logger:     opts.Logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests)
	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/chat/:session_id/history", s.handleHistory)
	}
	s.router = router
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", "addr", addr, "upstream", s.upstream)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Info("request", "method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status(), "took", time.Since(start))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var body map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		s.fail(c, fmt.Errorf("decode request: %w", err))
		return
	}
	userID, sessionID, message := body["user_id"], body["session_id"], body["message"]
	if !present(userID) || !present(sessionID) || !present(message) {
		c.JSON(http.StatusBadRequest, gin.H{"error": missingFieldsMessage})
		return
	}

	reply, err := s.forward(c.Request.Context(), c.GetHeader("Authorization"), map[string]any{
		"user_id":    userID,
		"session_id": sessionID,
		"message":    message,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.record(c.Request.Context(), text(userID), text(sessionID), text(message), reply)
	c.Data(http.StatusOK, "application/json; charset=utf-8", reply)
}

func (s *Server) forward(ctx context.Context, auth string, payload map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.upstream, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, fmt.Errorf("backend error: %d - %s", resp.StatusCode, string(data))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxReplyBytes {
		return nil, fmt.Errorf("upstream reply exceeds %d bytes", maxReplyBytes)
	}
	if !json.Valid(data) {
		return nil, errors.New("upstream returned invalid JSON")
	}
	return data, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("chat relay failed", "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": failedMessage, "details": err.Error()})
}

func (s *Server) record(ctx context.Context, userID, sessionID, message string, reply json.RawMessage) {
	if s.transcript == nil {
		return
	}
	err := s.transcript.Append(ctx,
		ChatMessage{SessionID: sessionID, UserID: userID, Role: RoleUser, Content: message},
		ChatMessage{SessionID: sessionID, UserID: userID, Role: RoleAssistant, Content: replyText(reply)},
	)
	if err != nil {
		s.logger.Warn("transcript not updated", "session_id", sessionID, "err", err)
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.transcript == nil {
		c.JSON(http.StatusOK, []ChatMessage{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, err := s.transcript.History(c.Request.Context(), c.Param("session_id"), limit)
	if err != nil {
		s.logger.Error("read transcript", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read chat history"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// present mirrors a truthiness check: missing, null, empty, zero and false
// all count as absent.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	default:
		return true
	}
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		raw, _ := json.Marshal(x)
		return string(raw)
	}
}

// replyText pulls the assistant's answer out of the upstream reply, falling
// back to the raw JSON.
func replyText(reply json.RawMessage) string {
	var body map[string]any
	if json.Unmarshal(reply, &body) == nil {
		for _, key := range []string{"response", "message", "reply"} {
			if s, ok := body[key].(string); ok {
				return s
			}
		}
	}
	return string(reply)
}
