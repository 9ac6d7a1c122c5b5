package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
)

const (
	// maxResponseSize limits the gateway response body size to prevent
	// memory exhaustion on a misbehaving endpoint.
	maxResponseSize = 1 * 1024 * 1024

	defaultTimeout = 10 * time.Second

	messagingPath = "/version1/messaging"
)

// AfricasTalkingSender sends SMS through an Africa's Talking compatible
// bulk messaging gateway.
type AfricasTalkingSender struct {
	config     *config.SMSConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// gatewayResponse mirrors the messaging API response envelope.
type gatewayResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
			Cost       string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// NewAfricasTalkingSender creates a sender from the gateway configuration.
func NewAfricasTalkingSender(cfg *config.SMSConfig, logger *zap.Logger) (*AfricasTalkingSender, error) {
	if cfg.Enabled {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("sms gateway enabled but base_url is empty")
		}
		if cfg.APIKey == "" || cfg.Username == "" {
			return nil, fmt.Errorf("sms gateway enabled but credentials are missing")
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &AfricasTalkingSender{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Enabled reports whether the gateway is configured for delivery.
func (s *AfricasTalkingSender) Enabled() bool {
	return s.config.Enabled
}

// Send posts a single message to the gateway and returns the message ID
// assigned to the recipient.
func (s *AfricasTalkingSender) Send(ctx context.Context, to, message string) (string, error) {
	if !s.config.Enabled {
		return "", ErrSMSDisabled
	}

	form := url.Values{}
	form.Set("username", s.config.Username)
	form.Set("to", to)
	form.Set("message", message)
	if s.config.SenderID != "" {
		form.Set("from", s.config.SenderID)
	}

	endpoint := strings.TrimRight(s.config.BaseURL, "/") + messagingPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read sms gateway response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode sms gateway response: %w", err)
	}

	if len(parsed.SMSMessageData.Recipients) == 0 {
		return "", fmt.Errorf("sms gateway accepted no recipients: %s", parsed.SMSMessageData.Message)
	}

	recipient := parsed.SMSMessageData.Recipients[0]
	if recipient.StatusCode >= 400 {
		return "", fmt.Errorf("sms delivery to %s rejected: %s", recipient.Number, recipient.Status)
	}

	s.logger.Debug("SMS accepted by gateway",
		zap.String("to", recipient.Number),
		zap.String("message_id", recipient.MessageID),
		zap.String("status", recipient.Status))

	return recipient.MessageID, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
