// Package ai forwards @ai requests from chat rooms to an external completion endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"portal-service/internal/models"
	"portal-service/internal/observability"
)

const (
	// ContextSize is the number of recent room messages sent along with a request.
	ContextSize = 10

	DefaultTimeout = 10 * time.Second

	UnavailableText   = "AI service temporarily unavailable. Please try again later."
	NotConfiguredText = "AI endpoint not configured. Please update the portal configuration with a valid AI API endpoint."
	EmptyResponseText = "AI response received"
)

var triggerPattern = regexp.MustCompile(`(?i)@ai`)

// Triggered reports whether text addresses the AI.
func Triggered(text string) bool {
	return triggerPattern.MatchString(text)
}

// StripTrigger removes every @ai mention and trims the result.
func StripTrigger(text string) string {
	return strings.TrimSpace(triggerPattern.ReplaceAllString(text, ""))
}

// RoomContext is what the AI is told about the room a request came from.
type RoomContext struct {
	RoomName   string
	Username   string
	Department string
	// History holds recent messages oldest first.
	History []models.Message
}

// BuildContext renders rc and the stripped request as the prompt context.
func BuildContext(rc RoomContext, stripped string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\nUser: %s (%s)\n", rc.RoomName, rc.Username, rc.Department)
	b.WriteString("Recent messages:\n")
	for _, msg := range rc.History {
		fmt.Fprintf(&b, "%s: %s\n", msg.DisplayName(), msg.Text)
	}
	fmt.Fprintf(&b, "\nNew message: %s", stripped)
	return b.String()
}

// Completer produces the AI reply for a request. It never fails; degraded
// outcomes are rendered as reply text.
type Completer interface {
	Complete(ctx context.Context, rc RoomContext, stripped string) string
}

type completionRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

type completionResponse struct {
	Response *string `json:"response"`
}

// Bridge calls an HTTP completion endpoint.
type Bridge struct {
	endpoint string
	client   *http.Client
}

// NewBridge builds a Bridge. An empty endpoint makes every reply the
// not-configured notice.
func NewBridge(endpoint string, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (b *Bridge) Complete(ctx context.Context, rc RoomContext, stripped string) string {
	if b.endpoint == "" {
		observability.ObserveAIRequest("not_configured", 0)
		return NotConfiguredText
	}

	start := time.Now()
	text, err := b.call(ctx, completionRequest{Message: stripped, Context: BuildContext(rc, stripped)})
	if err != nil {
		log.Printf("ai request failed endpoint=%s: %v", b.endpoint, err)
		observability.ObserveAIRequest("error", time.Since(start))
		return UnavailableText
	}
	observability.ObserveAIRequest("ok", time.Since(start))
	return text
}

func (b *Bridge) call(ctx context.Context, body completionRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Response == nil {
		return EmptyResponseText, nil
	}
	return *out.Response, nil
}
