package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const newsletterAPIPath = "/news/subscribe"

// NewsletterSignupPayload is the deferred-job payload for a newsletter
// subscription; the worker posts it to the basket API.
type NewsletterSignupPayload struct {
	Email     string `json:"email"`
	Lang      string `json:"lang"`
	SourceURL string `json:"source_url"`
}

// NewsletterClient posts subscriptions to the basket newsletter API. An
// unconfigured API root disables it.
type NewsletterClient struct {
	apiRoot string
	client  *http.Client
}

func NewNewsletterClient(apiRoot string, timeout time.Duration) *NewsletterClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NewsletterClient{
		apiRoot: strings.TrimRight(apiRoot, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *NewsletterClient) Subscribe(ctx context.Context, payload *NewsletterSignupPayload) error {
	if c.apiRoot == "" {
		return nil
	}

	values := url.Values{}
	values.Set("format", "html")
	values.Set("lang", payload.Lang)
	values.Set("newsletters", "mozilla-foundation")
	values.Set("trigger_welcome", "N")
	values.Set("source_url", payload.SourceURL)
	values.Set("email", payload.Email)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiRoot+newsletterAPIPath, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("basket newsletter subscribe failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return nil
}
