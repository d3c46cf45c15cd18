package logging

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-ID"
	localsLogger    = "logger"
)

// FiberMiddleware tags each request with a request ID, stores a request
// scoped logger in the fiber locals and logs the completed request.
func FiberMiddleware(logger zerolog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		child := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Method()).
			Str(FieldPath, c.Path()).
			Str(FieldClientIP, c.IP()).
			Logger()

		c.Set(headerRequestID, reqID)
		c.Locals(localsLogger, child)

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		evt := child.Info()
		if status >= fiber.StatusInternalServerError {
			evt = child.Error().Err(err)
		}
		evt.Int(FieldStatus, status).
			Float64(FieldLatency, float64(time.Since(start).Microseconds())/1000).
			Msg("request completed")

		return err
	}
}

// FromFiber returns the request scoped logger, or the process logger.
func FromFiber(c fiber.Ctx) zerolog.Logger {
	if l, ok := c.Locals(localsLogger).(zerolog.Logger); ok {
		return l
	}
	return L()
}
