package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
)

// ChannelType specifies the notification channel.
type ChannelType string

const (
	ChannelWebhook ChannelType = "webhook"
	ChannelLog     ChannelType = "log"
)

// Alert is a tank level transition into the low or high state.
type Alert struct {
	Tank      string    `json:"tank"`
	State     string    `json:"state"`
	Previous  string    `json:"previous,omitempty"`
	Level     float64   `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel delivers alerts.
type Channel interface {
	Send(ctx context.Context, alerts []Alert) error
	Type() ChannelType
}

// Notifier fans alerts out to its channels.
type Notifier struct {
	channels []Channel
	timeout  time.Duration
	logger   *slog.Logger
}

// NewNotifier creates a notifier. A webhook channel is added when the
// configuration names one; alerts are always logged.
func NewNotifier(cfg config.NotifyConfig, logger *slog.Logger) *Notifier {
	n := &Notifier{
		timeout: cfg.Timeout,
		logger:  logger.With("component", "notifier"),
	}
	n.AddChannel(&LogChannel{logger: n.logger})
	if cfg.WebhookURL != "" {
		n.AddChannel(NewWebhookChannel(cfg.WebhookURL, cfg.Timeout))
	}
	return n
}

// AddChannel registers a notification channel.
func (n *Notifier) AddChannel(ch Channel) {
	n.channels = append(n.channels, ch)
}

// Notify sends alerts to all registered channels. Delivery failures are
// logged, never returned.
func (n *Notifier) Notify(ctx context.Context, alerts ...Alert) {
	if n == nil || len(alerts) == 0 {
		return
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	for _, ch := range n.channels {
		if err := ch.Send(ctx, alerts); err != nil {
			n.logger.Error("notification failed", "channel", ch.Type(), "error", err)
		}
	}
}

// LogChannel writes alerts to the log.
type LogChannel struct {
	logger *slog.Logger
}

func (l *LogChannel) Type() ChannelType { return ChannelLog }

func (l *LogChannel) Send(_ context.Context, alerts []Alert) error {
	for _, a := range alerts {
		l.logger.Warn(a.Message, "tank", a.Tank, "state", a.State, "previous", a.Previous, "level", a.Level)
	}
	return nil
}

// WebhookChannel posts alerts as JSON.
type WebhookChannel struct {
	URL    string
	client *http.Client
}

// NewWebhookChannel creates a webhook channel posting to url.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		URL:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *WebhookChannel) Type() ChannelType { return ChannelWebhook }

func (w *WebhookChannel) Send(ctx context.Context, alerts []Alert) error {
	data, err := json.Marshal(map[string]any{
		"alerts":    alerts,
		"count":     len(alerts),
		"timestamp": time.Now(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: HTTP %d", w.URL, resp.StatusCode)
	}
	return nil
}
