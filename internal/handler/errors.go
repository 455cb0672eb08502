package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// statusFor maps a business rule violation to an HTTP status.
func statusFor(k model.Kind) int {
	switch k {
	case model.KindMovieNotFound, model.KindUserNotFound:
		return http.StatusNotFound
	case model.KindMovieTitleExists, model.KindUserExists,
		model.KindAlreadyBooked, model.KindAlreadyRated, model.KindMovieFullyBooked:
		return http.StatusConflict
	case model.KindMoviePriceOutOfRange, model.KindUserAgeOutOfRange, model.KindUserClassInvalid,
		model.KindRatingOutOfRange, model.KindNotBooked, model.KindNoRatingsForTargetUser:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": kind, "message": text}.
// Anything that is not a business rule violation is logged and hidden
// behind a 500.
func (b base) respondError(c echo.Context, err error) error {
	kind := model.KindOf(err)
	if kind == model.KindUnknown {
		b.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal error"})
	}
	return c.JSON(statusFor(kind), echo.Map{"error": kind.String(), "message": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}
