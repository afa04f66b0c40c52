package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vectorium-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// errorLogSize is how many 5xx entries /health/errors can show.
const errorLogSize = 50

// NewErrorHandler returns the global error handler. Uncaught errors become the
// standard error envelope; 5xx ones are also pushed to the Redis error log.
func NewErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
			RecordError(c.UserContext(), rdb, c.Method(), c.OriginalURL(), code, err.Error())
		}
		return response.Error(c, message, code, nil)
	}
}

// ErrorHandler is NewErrorHandler without the Redis error log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return NewErrorHandler(nil)(c, err)
}

// RecordError appends one entry to the capped error log. A nil client is a no-op.
func RecordError(ctx context.Context, rdb *redis.Client, method, path string, status int, message string) {
	if rdb == nil {
		return
	}
	b, _ := json.Marshal(map[string]interface{}{
		"time":    time.Now().UTC().Format(time.RFC3339),
		"method":  method,
		"path":    path,
		"status":  status,
		"message": message,
	})
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, KeyErrorLog, b)
	pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("error log write failed")
	}
}
