package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campus-support/backend/internal/models"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/pkg/resilience"
)

const systemPrompt = `You are the support assistant of a school-management platform used by admins, teachers, students and parents.
Answer briefly and accurately. Prefer the knowledge-base entries you are given. If you cannot help or the user asks for a human, set requires_escalation to true.
Respond with a JSON object only: {"reply": string, "intent": string, "confidence": number between 0 and 1, "suggested_actions": [{"type": string, "label": string, "value": string}], "requires_escalation": boolean}`

// ClientConfig configures the chat-completions client
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// HTTPTimeout bounds a single request; callers usually set a tighter
	// deadline on the context.
	HTTPTimeout time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	breaker    *resilience.CircuitBreaker
	log        *logger.Logger
}

// NewClient creates a client guarded by a circuit breaker
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	breakerCfg := resilience.DefaultConfig("oracle")
	breakerCfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }

	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		breaker:    resilience.NewCircuitBreaker(breakerCfg, log),
		log:        log,
	}
}

// Configured reports whether an endpoint and key are present
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Breaker exposes the circuit breaker for health reporting
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type structuredReply struct {
	Reply              string                   `json:"reply"`
	Intent             string                   `json:"intent"`
	Confidence         float64                  `json:"confidence"`
	SuggestedActions   []models.SuggestedAction `json:"suggested_actions"`
	RequiresEscalation bool                     `json:"requires_escalation"`
}

// Generate asks the oracle for the next assistant reply. Deadline errors
// keep context.DeadlineExceeded in their chain; other failures wrap
// ErrUnavailable.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Generation, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var gen *Generation
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		gen, callErr = c.complete(ctx, req)
		return callErr
	})
	switch {
	case err == nil:
		return gen, nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil, err
	case errors.Is(err, ErrUnavailable):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (c *Client) complete(ctx context.Context, req GenerateRequest) (*Generation, error) {
	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       buildMessages(req),
		Temperature:    0.3,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("oracle request: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("Oracle returned an error status",
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrUnavailable)
	}

	gen := parseReply(decoded.Choices[0].Message.Content)
	if gen.Reply == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrUnavailable)
	}
	c.log.Debug("Oracle replied", "intent", gen.Intent, "latency_ms", time.Since(start).Milliseconds())
	return gen, nil
}

func buildMessages(req GenerateRequest) []chatMessage {
	messages := []chatMessage{{Role: "system", Content: systemPrompt}}

	if about := describeRequest(req); about != "" {
		messages = append(messages, chatMessage{Role: "system", Content: about})
	}

	if len(req.FAQs) > 0 {
		var b strings.Builder
		b.WriteString("Knowledge-base entries that may help:\n")
		for i, f := range req.FAQs {
			fmt.Fprintf(&b, "%d. [%s] Q: %s\n   A: %s\n", i+1, f.Category, f.Question, f.Answer)
		}
		messages = append(messages, chatMessage{Role: "system", Content: b.String()})
	}

	for _, turn := range req.History {
		role := "user"
		if turn.Role == models.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Content})
	}
	return append(messages, chatMessage{Role: "user", Content: req.Message})
}

// describeRequest renders who is asking and the client's context. Context
// that cannot be encoded is left out.
func describeRequest(req GenerateRequest) string {
	var b strings.Builder
	if c := req.Caller; c != nil {
		fmt.Fprintf(&b, "The user is signed in: id=%s", c.ID)
		if c.Role != "" {
			fmt.Fprintf(&b, " role=%s", c.Role)
		}
		if c.Email != "" {
			fmt.Fprintf(&b, " email=%s", c.Email)
		}
		b.WriteString("\n")
	}
	if len(req.Context) > 0 {
		if raw, err := json.Marshal(req.Context); err == nil {
			fmt.Fprintf(&b, "Client context: %s\n", raw)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// parseReply accepts the structured JSON reply and falls back to plain text
func parseReply(content string) *Generation {
	content = strings.TrimSpace(content)
	var parsed structuredReply
	if err := json.Unmarshal([]byte(content), &parsed); err == nil && strings.TrimSpace(parsed.Reply) != "" {
		intent := parsed.Intent
		if intent == "" {
			intent = "unknown"
		}
		return &Generation{
			Reply:              strings.TrimSpace(parsed.Reply),
			Intent:             intent,
			Confidence:         clamp01(parsed.Confidence),
			SuggestedActions:   parsed.SuggestedActions,
			RequiresEscalation: parsed.RequiresEscalation,
		}
	}
	return &Generation{Reply: content, Intent: "unknown"}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
