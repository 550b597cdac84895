// Package email delivers rendered reports.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultResendURL = "https://api.resend.com/emails"

// ReportEmail is one rendered report addressed to one recipient.
type ReportEmail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Service defines the interface for email operations
type Service interface {
	// SendReport sends a rendered report
	SendReport(ctx context.Context, msg ReportEmail) error
}

// RateLimitedService wraps a Service with a per-recipient hourly cap
type RateLimitedService struct {
	service      Service
	limiter      *EmailRateLimiter
	limitPerHour int
}

// NewRateLimitedService creates a new rate-limited email service
func NewRateLimitedService(service Service, limitPerHour int) *RateLimitedService {
	return &RateLimitedService{
		service:      service,
		limiter:      NewEmailRateLimiter(),
		limitPerHour: limitPerHour,
	}
}

// SendReport sends the report unless the recipient has reached the limit
func (s *RateLimitedService) SendReport(ctx context.Context, msg ReportEmail) error {
	if !s.limiter.Allow(msg.To, s.limitPerHour) {
		return ErrRateLimitExceeded
	}
	s.limiter.Record(msg.To)
	return s.service.SendReport(ctx, msg)
}

// EmailRateLimiter tracks sends per recipient over a sliding hour
type EmailRateLimiter struct {
	mu      sync.Mutex
	records map[string][]time.Time
	now     func() time.Time
}

// NewEmailRateLimiter creates a new email rate limiter
func NewEmailRateLimiter() *EmailRateLimiter {
	return &EmailRateLimiter{
		records: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow checks if a single email can be sent
func (l *EmailRateLimiter) Allow(key string, limitPerHour int) bool {
	return l.AllowN(key, limitPerHour, 1)
}

// AllowN checks if n emails can be sent (without recording them)
func (l *EmailRateLimiter) AllowN(key string, limitPerHour int, n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	oneHourAgo := l.now().Add(-time.Hour)
	var valid []time.Time
	for _, ts := range l.records[key] {
		if ts.After(oneHourAgo) {
			valid = append(valid, ts)
		}
	}
	l.records[key] = valid

	return len(valid)+n <= limitPerHour
}

// Record records that an email was sent
func (l *EmailRateLimiter) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[key] = append(l.records[key], l.now())
}

// ResendService implements Service using the Resend API
type ResendService struct {
	apiKey      string
	apiURL      string
	fromAddress string
	fromName    string
	httpClient  *http.Client
}

// NewResendService creates a new Resend email service
func NewResendService(apiKey, fromAddress, fromName string) *ResendService {
	return &ResendService{
		apiKey:      apiKey,
		apiURL:      defaultResendURL,
		fromAddress: fromAddress,
		fromName:    fromName,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithURL points the service at a different endpoint.
func (s *ResendService) WithURL(url string) *ResendService {
	s.apiURL = url
	return s
}

// resendRequest is the request body for Resend API
type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// SendReport sends the report via Resend
func (s *ResendService) SendReport(ctx context.Context, msg ReportEmail) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}
	jsonBody, err := json.Marshal(resendRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend API error (status %d): %v", resp.StatusCode, errResp)
	}
	return nil
}

// MockService records sent reports for tests
type MockService struct {
	mu         sync.Mutex
	SentEmails []ReportEmail
	ShouldFail bool
	FailError  error
}

// NewMockService creates a new mock email service
func NewMockService() *MockService {
	return &MockService{SentEmails: []ReportEmail{}}
}

// SendReport records the message
func (m *MockService) SendReport(_ context.Context, msg ReportEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		if m.FailError != nil {
			return m.FailError
		}
		return fmt.Errorf("mock email service failure")
	}
	m.SentEmails = append(m.SentEmails, msg)
	return nil
}

// Sent returns a copy of the recorded messages
func (m *MockService) Sent() []ReportEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ReportEmail(nil), m.SentEmails...)
}

// Reset clears all recorded emails
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = []ReportEmail{}
	m.ShouldFail = false
	m.FailError = nil
}
