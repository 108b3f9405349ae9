package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader  = "Idempotency-Key"
	ReplayedHeader        = "Idempotent-Replayed"
	idempotencyPrefix     = "idempotency:v1:"
	inProgressMarker      = "__in_progress__"
	idempotencyRedisLimit = 2 * time.Second
	// inProgressTTL bounds how long a crashed request can hold its key.
	inProgressTTL = 30 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency caches successful responses of unsafe requests in Redis under
// the caller's Idempotency-Key. A request arriving while the first one is
// still running gets 409. Only 2xx responses are kept; anything else frees
// the key so the client can retry. The ledger's own key check still runs
// when Redis is unavailable.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "missing " + IdempotencyKeyHeader + " header",
				"kind":  "INVALID_OPERATION",
			})
			return
		}
		cacheKey := idempotencyPrefix + c.GetHeader(OwnerIDHeader) + ":" + key

		ctx, cancel := context.WithTimeout(context.Background(), idempotencyRedisLimit)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		if err == nil {
			if cached == inProgressMarker {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error": "duplicate request currently processing",
					"kind":  "INVALID_OPERATION",
				})
				return
			}
			var stored storedResponse
			if err := json.Unmarshal([]byte(cached), &stored); err != nil {
				logger.Warn("Failed to decode stored idempotent response",
					slog.String("key", key),
					slog.Any("err", err),
				)
				c.Next()
				return
			}
			replay(c, stored)
			return
		}
		if !errors.Is(err, redis.Nil) {
			logger.Error("Idempotency lookup failed", slog.String("key", key), slog.Any("err", err))
			c.Next()
			return
		}

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, min(ttl, inProgressTTL)).Result()
		if err != nil {
			logger.Error("Idempotency reservation failed", slog.String("key", key), slog.Any("err", err))
			c.Next()
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "duplicate request currently processing",
				"kind":  "INVALID_OPERATION",
			})
			return
		}

		settled := false
		defer func() {
			if settled {
				return
			}
			// handler panicked
			delCtx, delCancel := context.WithTimeout(context.Background(), idempotencyRedisLimit)
			defer delCancel()
			cache.Del(delCtx, cacheKey)
		}()

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()
		settled = true

		persistCtx, persistCancel := context.WithTimeout(context.Background(), idempotencyRedisLimit)
		defer persistCancel()

		status := writer.Status()
		if status < 200 || status >= 300 {
			cache.Del(persistCtx, cacheKey)
			return
		}

		stored := storedResponse{
			Status:  status,
			Body:    writer.body.String(),
			Headers: map[string]string{},
		}
		for header, values := range writer.Header() {
			if len(values) > 0 {
				stored.Headers[header] = values[0]
			}
		}
		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("Failed to encode idempotent response", slog.String("key", key), slog.Any("err", err))
			cache.Del(persistCtx, cacheKey)
			return
		}
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			logger.Error("Failed to persist idempotent response", slog.String("key", key), slog.Any("err", err))
			cache.Del(persistCtx, cacheKey)
		}
	}
}

func replay(c *gin.Context, stored storedResponse) {
	for header, value := range stored.Headers {
		if strings.EqualFold(header, "Content-Length") || strings.EqualFold(header, RequestIDHeader) {
			continue
		}
		c.Header(header, value)
	}
	c.Header(ReplayedHeader, "true")

	status := stored.Status
	if status == http.StatusCreated {
		status = http.StatusOK
	}
	contentType := stored.Headers["Content-Type"]
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(status, contentType, []byte(stored.Body))
	c.Abort()
}
