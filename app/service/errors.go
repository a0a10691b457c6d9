package service

import (
	"errors"
	"strings"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrCurrencyUnsupported = errors.New("currency is not supported")
	ErrGatewayDeclined     = errors.New("payment was declined")
	ErrAddressInvalid      = errors.New("address is invalid")
	ErrSessionRequired     = errors.New("no completed transaction in session")
	ErrUpsellNotEligible   = errors.New("transaction is not eligible for a monthly upgrade")
)

// Donor-facing decline messages. Only this curated set is ever shown; raw
// gateway error text never leaves the service.
const defaultDeclineMessage = "Sorry there was an error processing your payment. " +
	"Please try again later or use a different payment method."

var declineMessages = map[string]string{
	"81703": "The type of card you used is not accepted.",
	"81707": "The CVV code you entered was invalid.",
	"81736": "The CVV code you entered was invalid.",
	"81710": "The expiration date you entered was invalid.",
	"81715": "The credit card number you entered was invalid.",
}

var addressErrorMessages = map[string]string{
	"81809": "The post code you provided is not valid.",
	"81813": "The post code you provided is not valid.",
}

// DeclinedError carries the donor-facing messages for a failed gateway
// call. It matches ErrGatewayDeclined through errors.Is.
type DeclinedError struct {
	Messages []string
}

func (e *DeclinedError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *DeclinedError) Is(target error) bool {
	return target == ErrGatewayDeclined
}

// AddressError is the postal-code sub-case of a decline, surfaced
// separately so the address field can be highlighted. It matches
// ErrAddressInvalid through errors.Is.
type AddressError struct {
	Messages []string
}

func (e *AddressError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *AddressError) Is(target error) bool {
	return target == ErrAddressInvalid
}
