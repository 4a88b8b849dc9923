package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"medallion-storefront/internal/config"
	"medallion-storefront/internal/models"
)

const resendAPIURL = "https://api.resend.com/emails"

// ErrEmailNotConfigured is returned when no Resend API key is set.
var ErrEmailNotConfigured = errors.New("email delivery not configured")

// EmailService sends transactional email.
type EmailService interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// ResendEmailService sends email through the Resend HTTP API. Calls go
// through a circuit breaker so an outage fails fast instead of holding
// webhook requests for the full client timeout.
type ResendEmailService struct {
	config  config.ResendConfig
	client  *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[string]
	log     zerolog.Logger
}

type ResendOption func(*ResendEmailService)

// WithResendBaseURL points the client at another endpoint (tests).
func WithResendBaseURL(url string) ResendOption {
	return func(s *ResendEmailService) { s.baseURL = url }
}

// WithBreakerSettings overrides the circuit breaker tuning.
func WithBreakerSettings(st gobreaker.Settings) ResendOption {
	return func(s *ResendEmailService) { s.breaker = s.newBreaker(st) }
}

func NewResendEmailService(cfg config.ResendConfig, log zerolog.Logger, opts ...ResendOption) *ResendEmailService {
	s := &ResendEmailService{
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: resendAPIURL,
		log:     log,
	}
	s.breaker = s.newBreaker(gobreaker.Settings{
		Name:        "resend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ResendEmailService) newBreaker(st gobreaker.Settings) *gobreaker.CircuitBreaker[string] {
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		s.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("email circuit breaker state changed")
	}
	// rejected messages are the caller's fault and must not open the breaker
	st.IsSuccessful = func(err error) bool {
		var apiErr *ResendAPIError
		return err == nil || (errors.As(err, &apiErr) && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests)
	}
	return gobreaker.NewCircuitBreaker[string](st)
}

// ResendEmailRequest is the body of POST /emails.
type ResendEmailRequest struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Tags    []ResendTag       `json:"tags,omitempty"`
}

type ResendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendEmailResponse struct {
	ID string `json:"id"`
}

type resendErrorResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// ResendAPIError is a non-2xx answer from Resend.
type ResendAPIError struct {
	StatusCode int
	Message    string
}

func (e *ResendAPIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("failed to send email, status: %d", e.StatusCode)
	}
	return fmt.Sprintf("failed to send email: %s", e.Message)
}

func (s *ResendEmailService) fromField() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

// SendOrderConfirmation emails the customer a summary of their order.
func (s *ResendEmailService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", order.OrderNumber)
	}

	html, text, err := renderOrderConfirmation(order)
	if err != nil {
		return err
	}

	id, err := s.Send(ctx, ResendEmailRequest{
		To:      []string{order.CustomerEmail},
		Subject: fmt.Sprintf("Your order %s is confirmed", order.OrderNumber),
		HTML:    html,
		Text:    text,
		Tags: []ResendTag{
			{Name: "category", Value: "order_confirmation"},
		},
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("order_number", order.OrderNumber).Str("email_id", id).Msg("order confirmation sent")
	return nil
}

// Send delivers one email and returns the Resend message id.
func (s *ResendEmailService) Send(ctx context.Context, request ResendEmailRequest) (string, error) {
	if s.config.APIKey == "" {
		return "", ErrEmailNotConfigured
	}
	if request.From == "" {
		request.From = s.fromField()
	}

	id, err := s.breaker.Execute(func() (string, error) {
		return s.post(ctx, request)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("email delivery suspended: %w", err)
		}
		return "", err
	}
	return id, nil
}

func (s *ResendEmailService) post(ctx context.Context, request ResendEmailRequest) (string, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorResp resendErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errorResp)
		return "", &ResendAPIError{StatusCode: resp.StatusCode, Message: errorResp.Message}
	}

	var response resendEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return response.ID, nil
}

// NoopEmailService drops email; used when Resend is not configured.
type NoopEmailService struct {
	log zerolog.Logger
}

func NewNoopEmailService(log zerolog.Logger) *NoopEmailService {
	return &NoopEmailService{log: log}
}

func (n *NoopEmailService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	n.log.Debug().Str("order_number", order.OrderNumber).Msg("email disabled, skipping order confirmation")
	return nil
}
