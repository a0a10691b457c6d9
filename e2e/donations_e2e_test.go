//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

const defaultDonationsHTTPBase = "http://localhost:48080"

func donationsHTTPBase() string {
	if base := os.Getenv("E2E_DONATIONS_HTTP_BASE"); base != "" {
		return base
	}
	return defaultDonationsHTTPBase
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestMain(m *testing.M) {
	if err := waitForHTTP(donationsHTTPBase(), 60*time.Second); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func TestHealth(t *testing.T) {
	client := newHTTPClient(donationsHTTPBase())
	resp, body := client.doJSON(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, body)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &health); err != nil || health.Status != "ok" {
		t.Fatalf("unexpected health body: %s", body)
	}
}

func TestDonationValidation(t *testing.T) {
	client := newHTTPClient(donationsHTTPBase())

	resp, _ := client.doJSON(t, http.MethodPost, "/donations/card", map[string]any{
		"first_name": "Jane",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete donation, got %d", resp.StatusCode)
	}

	resp, body := client.doJSON(t, http.MethodPost, "/donations/card", map[string]any{
		"first_name":      "Jane",
		"last_name":       "Doe",
		"email":           "jane@example.com",
		"amount":          10,
		"currency":        "xyz",
		"frequency":       "single",
		"braintree_nonce": "fake-valid-nonce",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown currency, got %d body=%s", resp.StatusCode, body)
	}
}

func TestCompletedWithoutSession(t *testing.T) {
	client := newHTTPClient(donationsHTTPBase())
	resp, _ := client.doJSON(t, http.MethodGet, "/donations/completed", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without session, got %d", resp.StatusCode)
	}
}

func TestUpsellWithoutSession(t *testing.T) {
	client := newHTTPClient(donationsHTTPBase())
	resp, _ := client.doJSON(t, http.MethodPost, "/donations/upsell", map[string]any{
		"amount": 5,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without session, got %d", resp.StatusCode)
	}
}

func TestBraintreeWebhookRequiresFormFields(t *testing.T) {
	client := newHTTPClient(donationsHTTPBase())

	form := url.Values{}
	form.Set("bt_payload", "eyJraW5kIjoi")
	req, err := http.NewRequest(http.MethodPost, donationsHTTPBase()+"/webhooks/braintree", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing bt_signature, got %d", resp.StatusCode)
	}
}

func TestStripeWebhookRequiresSignature(t *testing.T) {
	client := newHTTPClient(donationsHTTPBase())
	resp, _ := client.doJSON(t, http.MethodPost, "/webhooks/stripe", map[string]any{
		"type": "charge.succeeded",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", resp.StatusCode)
	}
}

func TestNewsletterSignup(t *testing.T) {
	client := newHTTPClient(donationsHTTPBase())

	resp, _ := client.doJSON(t, http.MethodPost, "/newsletter/signup", map[string]any{
		"email": fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano()),
		"lang":  "en",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = client.doJSON(t, http.MethodPost, "/newsletter/signup", map[string]any{
		"email": "not-an-email",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", resp.StatusCode)
	}
}
