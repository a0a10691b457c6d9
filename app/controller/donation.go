package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-donations/app/currency"
	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

const sessionCookieName = "donation_session"

type DonationController struct {
	donationService *service.DonationService
	logger          logrus.FieldLogger
}

func NewDonationController(donationService *service.DonationService) *DonationController {
	return &DonationController{
		donationService: donationService,
		logger:          factory.NewModuleLogger("donations-controller"),
	}
}

func (c *DonationController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *DonationController) DonateCard(ctx echo.Context) error {
	return c.donate(ctx, entity.MethodCard)
}

func (c *DonationController) DonatePaypal(ctx echo.Context) error {
	return c.donate(ctx, entity.MethodPaypal)
}

func (c *DonationController) donate(ctx echo.Context, method string) error {
	req, err := types.NewDonationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	donation, err := req.ToEntity(method)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	sessionKey := c.ensureSession(ctx)
	details, err := c.donationService.Donate(ctx.Request().Context(), donation, sessionKey)
	if err != nil {
		return c.writeDonationError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, completedResponse(details))
}

func (c *DonationController) Upsell(ctx echo.Context) error {
	req, err := types.NewUpsellRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	sessionKey, ok := c.sessionKey(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "no completed donation found")
	}

	amount, err := entity.AmountFromString(req.Amount.String())
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "amount must be a decimal number")
	}

	details, err := c.donationService.Upsell(ctx.Request().Context(), sessionKey, amount)
	if err != nil {
		return c.writeDonationError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, completedResponse(details))
}

func (c *DonationController) Completed(ctx echo.Context) error {
	sessionKey, ok := c.sessionKey(ctx)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "no completed donation found")
	}

	details, err := c.donationService.Completed(ctx.Request().Context(), sessionKey)
	if err != nil {
		return c.writeDonationError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, completedResponse(details))
}

func (c *DonationController) NewsletterSignup(ctx echo.Context) error {
	req, err := types.NewNewsletterSignupRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	payload := &service.NewsletterSignupPayload{
		Email:     req.Email,
		Lang:      req.Lang,
		SourceURL: req.SourceURL,
	}
	if err := c.donationService.NewsletterSignup(ctx.Request().Context(), payload); err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Newsletter signup failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *DonationController) writeDonationError(ctx echo.Context, err error) error {
	var declined *service.DeclinedError
	var address *service.AddressError
	switch {
	case errors.As(err, &address):
		return ctx.JSON(http.StatusBadRequest, &types.DonationErrorResponse{
			Errors:         address.Messages,
			AddressInvalid: true,
		})
	case errors.As(err, &declined):
		return ctx.JSON(http.StatusBadRequest, &types.DonationErrorResponse{Errors: declined.Messages})
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrCurrencyUnsupported):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionRequired):
		return c.writeError(ctx, http.StatusNotFound, "no completed donation found")
	case errors.Is(err, service.ErrUpsellNotEligible):
		return c.writeError(ctx, http.StatusConflict, "donation is not eligible for a monthly upgrade")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Donation failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

// ensureSession returns the donor's session key, minting a new cookie when
// the request carries none.
func (c *DonationController) ensureSession(ctx echo.Context) string {
	if key, ok := c.sessionKey(ctx); ok {
		return key
	}

	key := uuid.NewString()
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    key,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func (c *DonationController) sessionKey(ctx echo.Context) (string, bool) {
	cookie, err := ctx.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func completedResponse(details *entity.TransactionDetails) *types.CompletedResponse {
	resp := &types.CompletedResponse{
		FirstName:     details.FirstName,
		LastName:      details.LastName,
		Email:         details.Email,
		Amount:        details.Amount.String(),
		Currency:      details.Currency,
		Frequency:     details.Frequency,
		Method:        details.Method,
		TransactionID: details.TransactionID,
		Last4:         details.Last4,
		CardType:      details.CardType,
	}

	if details.Frequency == entity.FrequencySingle && details.Method == entity.MethodCard {
		if suggested := currency.SuggestedMonthlyUpgrade(details.Currency, details.Amount.Decimal); suggested != nil {
			resp.UpgradeSuggested = suggested.String()
		}
	}
	return resp
}

func (c *DonationController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
