package anthropic

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MessagesRequest is a Messages API request body.
type MessagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

// Message is one turn of the request conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse is a Messages API response body.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock is one block of response content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage is token usage for one or more requests.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// GetTextContent concatenates every text block of the response.
func (r *MessagesResponse) GetTextContent() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// Float returns a pointer to v, for optional request fields such as Temperature.
func Float(v float64) *float64 { return &v }

// APIError is an error response from the API.
type APIError struct {
	Type        string       `json:"type"`
	ErrorDetail ErrorDetails `json:"error"`
	StatusCode  int          `json:"-"`
}

// ErrorDetails is the body of an API error.
type ErrorDetails struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API error (status %d, type %s): %s", e.StatusCode, e.ErrorDetail.Type, e.ErrorDetail.Message)
}

// Temporary reports whether the request may succeed if repeated later
// (rate limiting, overload or a server error).
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == 529 || e.StatusCode >= 500
}

// IsTemporary reports whether err wraps a temporary *APIError.
func IsTemporary(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Temporary()
}
