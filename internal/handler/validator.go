package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs go-playground/validator into echo's Bind +
// Validate flow.  It checks DTO shape only (the required fields of the
// request structs); the booking core enforces the domain rules,
// including the email format, on top.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator builds the validator used by the server.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
