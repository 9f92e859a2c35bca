package tracking

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CodeOrderNotFound    = "ORDER_NOT_FOUND"
	CodeOrderInvalid     = "ORDER_INVALID"
	CodeOrderNumberTaken = "ORDER_NUMBER_TAKEN"
)

var (
	ErrOrderNotFound       = errors.New("tracking: order not found")
	ErrOrderIDRequired     = errors.New("tracking: order id required")
	ErrOrderNumberRequired = errors.New("tracking: order number required")
	ErrOrderNumberExists   = errors.New("tracking: order number already exists")
	ErrSourceInvalid       = errors.New("tracking: source must be manual, csv or shopify")
	ErrExternalIDRequired  = errors.New("tracking: imported orders require an external id")
	ErrPhoneInvalid        = errors.New("tracking: phone number is invalid")
	ErrEmailInvalid        = errors.New("tracking: email address is invalid")
)

func notFound(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryNotFound, "order not found").WithTextCode(CodeOrderNotFound)
}

func invalid(err error) error {
	code := CodeOrderInvalid
	if errors.Is(err, ErrOrderNumberExists) {
		code = CodeOrderNumberTaken
		return goerrors.Wrap(err, goerrors.CategoryConflict, "order number already exists").WithTextCode(code)
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "order input is invalid").WithTextCode(code)
}
