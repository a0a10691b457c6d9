package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/gateway"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/session"
	"github.com/vibast-solutions/ms-go-donations/config"
)

type controllerVault struct {
	createCustomerFn    func(ctx context.Context, payload *gateway.CustomerPayload) (*entity.GatewayResult, error)
	createTransactionFn func(ctx context.Context, payload *gateway.TransactionPayload) (*entity.GatewayResult, error)
}

func (v *controllerVault) CreateCustomer(ctx context.Context, payload *gateway.CustomerPayload) (*entity.GatewayResult, error) {
	if v.createCustomerFn != nil {
		return v.createCustomerFn(ctx, payload)
	}
	return &entity.GatewayResult{
		Success: true,
		Customer: &entity.CustomerSummary{
			PaymentMethodToken: "token-1",
			Last4:              "4242",
			CardType:           "Visa",
		},
	}, nil
}

func (v *controllerVault) CreateTransaction(ctx context.Context, payload *gateway.TransactionPayload) (*entity.GatewayResult, error) {
	if v.createTransactionFn != nil {
		return v.createTransactionFn(ctx, payload)
	}
	return &entity.GatewayResult{Success: true, TransactionID: "tx-1"}, nil
}

func (v *controllerVault) CreateSubscription(context.Context, *gateway.SubscriptionPayload) (*entity.GatewayResult, error) {
	return &entity.GatewayResult{Success: true, SubscriptionID: "sub-1"}, nil
}

type controllerSessions struct {
	stored map[string]*entity.TransactionDetails
}

func (s *controllerSessions) Write(_ context.Context, sessionKey string, details *entity.TransactionDetails) error {
	if s.stored == nil {
		s.stored = map[string]*entity.TransactionDetails{}
	}
	copied := *details
	s.stored[sessionKey] = &copied
	return nil
}

func (s *controllerSessions) Read(_ context.Context, sessionKey string) (*entity.TransactionDetails, error) {
	details, ok := s.stored[sessionKey]
	if !ok {
		return nil, session.ErrNotFound
	}
	copied := *details
	return &copied, nil
}

type controllerEnqueuer struct {
	jobTypes []string
}

func (e *controllerEnqueuer) Enqueue(_ context.Context, _ string, jobType string, _ interface{}) error {
	e.jobTypes = append(e.jobTypes, jobType)
	return nil
}

func (e *controllerEnqueuer) EnqueueLatest(_ context.Context, _ string, jobType string, _ string, _ interface{}) error {
	e.jobTypes = append(e.jobTypes, jobType)
	return nil
}

func newTestController(vault *controllerVault) (*DonationController, *controllerSessions) {
	builder := service.NewTransactionBuilder(config.BraintreeConfig{
		MerchantAccounts: map[string]string{"usd": "mofo-usd"},
		Plans:            map[string]string{"usd": "usd-plan"},
		FraudSiteID:      "mofo",
	})
	sessions := &controllerSessions{}
	svc := service.NewDonationService(vault, builder, sessions, &controllerEnqueuer{}, testLogger())
	return NewDonationController(svc), sessions
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const donationBody = `{
	"first_name": "Jane",
	"last_name": "Doe",
	"email": "jane@example.com",
	"amount": 10,
	"currency": "usd",
	"frequency": "single",
	"braintree_nonce": "fake-valid-nonce",
	"address": {"street_address": "1 Main St", "town": "Portland", "post_code": "97201", "country": "US"}
}`

func postJSON(path, body string, cookie *http.Cookie) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req, httptest.NewRecorder()
}

func TestDonateCardSuccessSetsSessionCookie(t *testing.T) {
	controller, sessions := newTestController(&controllerVault{})
	e := echo.New()

	req, rec := postJSON("/donations/card", donationBody, nil)
	ctx := e.NewContext(req, rec)

	if err := controller.DonateCard(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TransactionID    string `json:"transaction_id"`
		UpgradeSuggested string `json:"upgrade_suggested"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.TransactionID != "tx-1" {
		t.Fatalf("expected tx-1, got %q", resp.TransactionID)
	}
	cookies := rec.Result().Cookies()
	var found bool
	for _, cookie := range cookies {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			found = true
			if _, ok := sessions.stored[cookie.Value]; !ok {
				t.Fatal("expected session stored under cookie value")
			}
		}
	}
	if !found {
		t.Fatal("expected session cookie set")
	}
}

func TestDonateCardSuggestsUpgradeForLargeGift(t *testing.T) {
	controller, _ := newTestController(&controllerVault{})
	e := echo.New()

	body := `{
		"first_name": "Jane", "last_name": "Doe", "email": "jane@example.com",
		"amount": 120, "currency": "usd", "frequency": "single",
		"braintree_nonce": "fake-valid-nonce"
	}`
	req, rec := postJSON("/donations/card", body, nil)
	if err := controller.DonateCard(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var resp struct {
		UpgradeSuggested string `json:"upgrade_suggested"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.UpgradeSuggested != "10" {
		t.Fatalf("expected tier suggestion 10, got %q", resp.UpgradeSuggested)
	}
}

func TestDonateValidationFailure(t *testing.T) {
	controller, _ := newTestController(&controllerVault{})
	e := echo.New()

	req, rec := postJSON("/donations/card", `{"first_name":"Jane"}`, nil)
	if err := controller.DonateCard(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected handled error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDonateDeclineReturnsMessages(t *testing.T) {
	vault := &controllerVault{
		createTransactionFn: func(context.Context, *gateway.TransactionPayload) (*entity.GatewayResult, error) {
			return &entity.GatewayResult{
				Success: false,
				Errors:  []entity.GatewayError{{Code: "81715"}},
			}, nil
		},
	}
	controller, _ := newTestController(vault)
	e := echo.New()

	req, rec := postJSON("/donations/card", donationBody, nil)
	if err := controller.DonateCard(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected handled error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp struct {
		Errors         []string `json:"errors"`
		AddressInvalid bool     `json:"address_invalid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "The credit card number you entered was invalid." {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
	if resp.AddressInvalid {
		t.Fatal("expected address flag unset for a card decline")
	}
}

func TestDonateAddressErrorSetsFlag(t *testing.T) {
	vault := &controllerVault{
		createTransactionFn: func(context.Context, *gateway.TransactionPayload) (*entity.GatewayResult, error) {
			return &entity.GatewayResult{
				Success: false,
				Errors:  []entity.GatewayError{{Code: "81809"}},
			}, nil
		},
	}
	controller, _ := newTestController(vault)
	e := echo.New()

	req, rec := postJSON("/donations/card", donationBody, nil)
	if err := controller.DonateCard(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected handled error, got %v", err)
	}

	var resp struct {
		Errors         []string `json:"errors"`
		AddressInvalid bool     `json:"address_invalid"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.AddressInvalid {
		t.Fatal("expected address flag set")
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "The post code you provided is not valid." {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
}

func TestUpsellFlow(t *testing.T) {
	controller, _ := newTestController(&controllerVault{})
	e := echo.New()

	// No session cookie at all.
	req, rec := postJSON("/donations/upsell", `{"amount": 5}`, nil)
	if err := controller.Upsell(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected handled error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without session, got %d", rec.Code)
	}

	// Donate first to mint a session cookie.
	req, rec = postJSON("/donations/card", donationBody, nil)
	if err := controller.DonateCard(e.NewContext(req, rec)); err != nil {
		t.Fatalf("donate failed: %v", err)
	}
	var sessionCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected session cookie from donation")
	}

	req, rec = postJSON("/donations/upsell", `{"amount": 5}`, sessionCookie)
	if err := controller.Upsell(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Frequency     string `json:"frequency"`
		TransactionID string `json:"transaction_id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Frequency != entity.FrequencyMonthly || resp.TransactionID != "sub-1" {
		t.Fatalf("unexpected upsell response: %+v", resp)
	}

	// A second upgrade attempt conflicts.
	req, rec = postJSON("/donations/upsell", `{"amount": 5}`, sessionCookie)
	if err := controller.Upsell(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected handled error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCompletedRequiresSession(t *testing.T) {
	controller, _ := newTestController(&controllerVault{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/donations/completed", nil)
	rec := httptest.NewRecorder()
	if err := controller.Completed(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected handled error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNewsletterSignupEndpoint(t *testing.T) {
	controller, _ := newTestController(&controllerVault{})
	e := echo.New()

	req, rec := postJSON("/newsletter/signup", `{"email":"jane@example.com"}`, nil)
	if err := controller.NewsletterSignup(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req, rec = postJSON("/newsletter/signup", `{"email":"no-at-sign"}`, nil)
	if err := controller.NewsletterSignup(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected handled error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	controller, _ := newTestController(&controllerVault{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := controller.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}
