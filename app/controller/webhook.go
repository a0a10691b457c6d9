package controller

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/jobs"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

// WebhookController accepts gateway webhook deliveries. Handlers only
// validate the delivery shape and enqueue it; verification and forwarding
// run worker-side so the gateway sees a fast 200.
type WebhookController struct {
	dispatcher *jobs.Dispatcher
	logger     logrus.FieldLogger
}

func NewWebhookController(dispatcher *jobs.Dispatcher) *WebhookController {
	return &WebhookController{
		dispatcher: dispatcher,
		logger:     factory.NewModuleLogger("webhooks-controller"),
	}
}

func (c *WebhookController) HandleBraintree(ctx echo.Context) error {
	signature := strings.TrimSpace(ctx.FormValue("bt_signature"))
	payload := strings.TrimSpace(ctx.FormValue("bt_payload"))
	if signature == "" || payload == "" {
		return c.writeError(ctx, http.StatusBadRequest, "bt_signature and bt_payload are required")
	}

	job := &service.WebhookJobPayload{Body: payload, Signature: signature}
	if err := c.dispatcher.Enqueue(ctx.Request().Context(), jobs.QueueWebhooks, jobs.TypeBraintreeWebhook, job); err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Enqueue braintree webhook failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.NoContent(http.StatusOK)
}

func (c *WebhookController) HandleStripe(ctx echo.Context) error {
	signature := strings.TrimSpace(ctx.Request().Header.Get("Stripe-Signature"))
	if signature == "" {
		return c.writeError(ctx, http.StatusBadRequest, "stripe-signature header is required")
	}

	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil || len(body) == 0 {
		return c.writeError(ctx, http.StatusBadRequest, "request body is required")
	}

	job := &service.WebhookJobPayload{Body: string(body), Signature: signature}
	if err := c.dispatcher.Enqueue(ctx.Request().Context(), jobs.QueueWebhooks, jobs.TypeStripeWebhook, job); err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Enqueue stripe webhook failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.NoContent(http.StatusOK)
}

func (c *WebhookController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
