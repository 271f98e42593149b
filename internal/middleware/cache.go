package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/labsphere/environment-reservation/internal/config"
)

// cachedResponse is the envelope stored in Redis for a cached reply.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter duplicates the response body into a buffer so a
// successful reply can be stored after the handler runs.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// NewRedisCache caches successful responses for the configured methods
// keyed on method, path, query string and caller role.  Keys include
// the role so member and admin listings never leak into each other.
// With a nil client or Enabled=false it is a pass-through.
func NewRedisCache(client *redis.Client, cfg config.CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if client == nil || !cfg.Enabled || !cfg.Methods[c.Request().Method] {
				return next(c)
			}

			key := cacheKey(cfg.Prefix, c)
			ctx := c.Request().Context()

			if raw, err := client.Get(ctx, key).Bytes(); err == nil {
				var stored cachedResponse
				if json.Unmarshal(raw, &stored) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(stored.Status, stored.ContentType, stored.Body)
				}
			}

			c.Response().Header().Set("X-Cache", "MISS")
			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && cw.buf.Len() <= cfg.MaxBodyBytes {
				stored := cachedResponse{
					Status:      cw.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        cw.buf.Bytes(),
				}
				if raw, err := json.Marshal(stored); err == nil {
					setCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
					client.SetEx(setCtx, key, raw, cfg.TTL)
					cancel()
				}
			}
			return nil
		}
	}
}

// cacheKey hashes the request identity so keys stay short and opaque.
func cacheKey(prefix string, c echo.Context) string {
	role, _ := c.Get(CtxRole).(string)
	userID, _ := c.Get(CtxUserID).(string)
	req := c.Request()
	sum := sha256.Sum256([]byte(req.Method + "|" + req.URL.Path + "|" + req.URL.RawQuery + "|" + role + "|" + userID))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}
