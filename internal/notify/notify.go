// Package notify posts plain-text batch summaries to an NTFY-style
// endpoint. Notification is best effort; a failure is logged and never
// fails the batch.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// BatchSummary is the message payload for a finished batch.
type BatchSummary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	Leaked    int
}

func (s BatchSummary) String() string {
	msg := fmt.Sprintf("Batch %s finished: %d sessions, %d succeeded, %d failed, %d cancelled",
		s.RunID, s.Total, s.Succeeded, s.Failed, s.Cancelled)
	if s.Leaked > 0 {
		msg += fmt.Sprintf(", %d browser handles leaked", s.Leaked)
	}
	return msg
}

// SendSummary posts a batch summary to the endpoint. An empty endpoint
// disables notification.
func SendSummary(ctx context.Context, client *http.Client, endpoint string, summary BatchSummary) error {
	if endpoint == "" {
		return nil
	}
	return Send(ctx, client, endpoint, summary.String())
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
