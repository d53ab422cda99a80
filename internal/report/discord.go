package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const notifyTimeout = 10 * time.Second

// Notifier posts report lines to a Discord webhook.
type Notifier struct {
	httpc   *http.Client
	webhook string
}

func NewNotifier(webhook string) *Notifier {
	return &Notifier{
		httpc:   &http.Client{Timeout: notifyTimeout},
		webhook: webhook,
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.webhook != ""
}

// Send posts one line to the webhook.
func (n *Notifier) Send(ctx context.Context, line string) error {
	payload, err := json.Marshal(map[string]string{
		"content":  "Update from Corp Ledger Bot! \r\n" + line,
		"username": "Ledger Bot",
	})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
