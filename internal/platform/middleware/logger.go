package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger emits one structured event per request after the handler chain
// completes, tagged with the request id when one is set.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			if rid, ok := c.Get("request_id").(string); ok {
				evt = evt.Str("request_id", rid)
			}

			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("query", req.URL.RawQuery).
				Int("status", res.Status).
				Int64("bytes_out", res.Size).
				Dur("elapsed", time.Since(start)).
				Str("client_ip", c.RealIP()).
				Msg("http request")

			return err
		}
	}
}
