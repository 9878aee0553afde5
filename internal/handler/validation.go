package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// fieldErrors collects per-field validation failures keyed by the JSON
// field name as submitted by the caller.
type fieldErrors map[string]string

// validationError answers a request whose payload failed validation,
// enumerating the offending fields and reasons.
func validationError(c echo.Context, fields fieldErrors) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":  "validation failed",
		"fields": fields,
	})
}

// bindFieldErrors attributes a bind failure to the offending JSON field
// where the decoder tells us which one it was. Returns nil when the
// failure cannot be pinned to a field.
func bindFieldErrors(err error) fieldErrors {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Internal != nil {
		err = httpErr.Internal
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fieldErrors{typeErr.Field: "invalid value type, expected " + typeErr.Type.String()}
	}
	return nil
}

// parseDecimal parses a required fixed-point decimal field submitted as
// a JSON string, recording any problem in fields.
func parseDecimal(raw *string, field string, fields fieldErrors) decimal.Decimal {
	if raw == nil {
		fields[field] = "this field is required"
		return decimal.Zero
	}
	value, err := decimal.NewFromString(*raw)
	if err != nil {
		fields[field] = "must be a valid decimal number"
		return decimal.Zero
	}
	if value.Exponent() < -2 {
		fields[field] = "must have at most 2 decimal places"
		return decimal.Zero
	}
	return value
}

// parseID parses a numeric path identifier. Anything else cannot match
// a record, and must never reach the query layer as a raw expression.
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// requireString checks a required string field against its maximum length.
func requireString(value string, field string, maxLen int, fields fieldErrors) {
	if value == "" {
		fields[field] = "this field is required"
		return
	}
	if len(value) > maxLen {
		fields[field] = "must not exceed " + strconv.Itoa(maxLen) + " characters"
	}
}
