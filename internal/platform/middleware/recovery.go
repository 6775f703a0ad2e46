package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fhirlab/catalog/internal/platform/fhir"
)

// Recovery converts a handler panic into a 500 OperationOutcome response, so
// even crash paths keep the uniform error body shape.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					evt := logger.Error().
						Interface("panic", r).
						Str("path", c.Request().URL.Path).
						Bytes("stack", debug.Stack())
					if rid, ok := c.Get("request_id").(string); ok {
						evt = evt.Str("request_id", rid)
					}
					evt.Msg("handler panicked")

					err = c.JSON(http.StatusInternalServerError,
						fhir.ErrorOutcome("internal server error"))
				}
			}()
			return next(c)
		}
	}
}
