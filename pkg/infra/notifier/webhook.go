package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/NeuralTrust/TrustShield/pkg/infra/httpx"
)

type webhookNotifier struct {
	url     string
	client  httpx.Client
	breaker httpx.CircuitBreaker
}

// NewWebhookNotifier posts each notification as JSON to url.
func NewWebhookNotifier(url string, client httpx.Client, breaker httpx.CircuitBreaker) Notifier {
	return &webhookNotifier{
		url:     url,
		client:  client,
		breaker: breaker,
	}
}

func (w *webhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return w.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}
