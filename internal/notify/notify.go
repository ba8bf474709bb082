// Package notify sends transactional email through an HTTP relay.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultRelayTimeout = 5 * time.Second

// Email is one outbound message. Template data is rendered by the relay,
// not here.
type Email struct {
	To           string         `json:"to"`
	TemplateType string         `json:"template_type"`
	Data         map[string]any `json:"data,omitempty"`
}

// Notifier delivers email best-effort. Callers never treat a delivery
// failure as a failure of the operation that triggered it.
type Notifier interface {
	SendEmail(ctx context.Context, email Email) error
}

// RelayNotifier posts emails to a relay endpoint as JSON.
type RelayNotifier struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

func NewRelayNotifier(url string, timeoutSeconds int, logger *zap.Logger) *RelayNotifier {
	timeout := defaultRelayTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayNotifier{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		Logger: logger,
	}
}

func (n *RelayNotifier) SendEmail(ctx context.Context, email Email) error {
	if strings.TrimSpace(n.URL) == "" {
		return fmt.Errorf("relay url not configured")
	}
	data, err := json.Marshal(email)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("relay status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	n.Logger.Debug("email sent", zap.String("to", email.To), zap.String("template", email.TemplateType))
	return nil
}

// NopNotifier drops email on the floor. Used when no relay is configured
// and in tests.
type NopNotifier struct{}

func (NopNotifier) SendEmail(context.Context, Email) error { return nil }
