package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Validator adapts go-playground/validator to echo.Validator.  Tags
// check only presence and shape; domain ranges are left to the store so
// that violations surface with their own error kind.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator { return &Validator{v: validator.New(validator.WithRequiredStructEnabled())} }

func (v *Validator) Validate(i any) error { return v.v.Struct(i) }

// bindValid binds the request body into req and validates it.  The
// returned message is meant for a 400 response.
func bindValid(c echo.Context, req any) (string, bool) {
	if err := c.Bind(req); err != nil {
		return "invalid body", false
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return "invalid fields: " + strings.Join(fields, ", "), false
		}
		return err.Error(), false
	}
	return "", true
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// base carries what every handler needs.
type base struct {
	log zerolog.Logger
}
