package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	CorrelationHeader = "X-Correlation-ID"
	replayHeader      = "X-Idempotent-Replay"
	inFlightTTL       = 30 * time.Second
)

// IdempotencyMiddleware provides idempotency for POST/PATCH/PUT/DELETE requests using X-Correlation-ID.
// If the same correlation ID is received from the same principal for the same
// method and path within the TTL, the stored response is replayed. A duplicate that arrives while the first
// request is still running gets 409.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPatch, fiber.MethodPut, fiber.MethodDelete:
		default:
			return c.Next()
		}

		correlationID := c.Get(CorrelationHeader)
		if correlationID == "" {
			// No correlation ID = no idempotency check
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s:%s:%s", principalID(c), c.Method(), c.Path(), correlationID)
		ctx := c.UserContext()

		cached, err := redisClient.HGetAll(ctx, key).Result()
		if err == nil && cached["body"] != "" {
			status, _ := strconv.Atoi(cached["status"])
			if status == 0 {
				status = fiber.StatusOK
			}
			c.Set(replayHeader, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(status).SendString(cached["body"])
		}
		if err != nil {
			// Redis down: serve the request without replay protection
			logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		lockKey := key + ":lock"
		acquired, err := redisClient.SetNX(ctx, lockKey, "1", inFlightTTL).Result()
		if err != nil {
			logger.Warn("idempotency lock failed", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		if !acquired {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "a request with this correlation id is still in progress",
			})
		}
		defer redisClient.Del(ctx, lockKey)

		if err := c.Next(); err != nil {
			return err
		}

		// Cache successful responses (2xx status codes)
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			body := c.Response().Body()
			if len(body) > 0 {
				pipe := redisClient.TxPipeline()
				pipe.HSet(ctx, key, "status", statusCode, "body", string(body))
				pipe.Expire(ctx, key, ttl)
				if _, err := pipe.Exec(ctx); err != nil {
					logger.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
				}
			}
		}

		return nil
	}
}
