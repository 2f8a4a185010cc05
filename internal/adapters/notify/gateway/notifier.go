package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medicine-reminders/internal/platform/httpclient"
	"medicine-reminders/internal/ports/notify"
)

var (
	ErrNotConfigured = errors.New("notify gateway not configured")
	ErrDelivery      = errors.New("notification delivery failed")
)

// Config del gateway de notificaciones (push/sms/email) de la app host.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Notifier implementa notify.Notifier contra el gateway HTTP.
// El caller (Notification Trigger) decide el reintento: un fallo aquí se
// reporta y se vuelve a intentar en el siguiente barrido.
type Notifier struct {
	client *httpclient.Client
	apiKey string
}

func New(cfg Config) (*Notifier, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}

	c, err := httpclient.NewWithBaseURL(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return &Notifier{
		client: c,
		apiKey: strings.TrimSpace(cfg.APIKey),
	}, nil
}

func (n *Notifier) Notify(ctx context.Context, userID, message string, ch notify.Channel) error {
	if n == nil || n.client == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: user and message required", ErrDelivery)
	}

	headers := map[string]string{}
	if n.apiKey != "" {
		headers["X-Api-Key"] = n.apiKey
	}

	body := map[string]string{
		"user_id": userID,
		"message": message,
		"channel": string(ch),
	}

	if err := n.client.DoJSON(ctx, "POST", "/v1/notifications", headers, body, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
