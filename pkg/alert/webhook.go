package alert

import (
	"context"
	"fmt"
	"net/http"

	"github.com/teslashibe/go-proximity/internal/httpc"
)

// Webhook posts the event as JSON when the action changes, e.g. to a relay
// controller. Unchanged frames are not sent.
type Webhook struct {
	url    string
	client *http.Client
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithClient overrides the HTTP client.
func WithClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// NewWebhook creates a Webhook posting to url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{url: url, client: httpc.Client}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) Act(ctx context.Context, ev Event) error {
	if !ev.Changed {
		return nil
	}
	if err := httpc.PostJSON(ctx, w.client, w.url, ev); err != nil {
		return fmt.Errorf("webhook %s: %w", ev.Action, err)
	}
	return nil
}
