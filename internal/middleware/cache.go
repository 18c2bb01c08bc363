package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/config"
)

// HeaderCache is HIT or MISS on responses that pass through
// ResponseCache.
const HeaderCache = "X-Cache"

// recorder tees the response body into buf, up to limit bytes.
type recorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.truncated {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.truncated = true
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// entry is what the cache stores for one response.
type entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func responseKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", r.URL.Path}
	case "method_route":
		parts = []string{"method", r.Method, "route", r.URL.Path}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", r.URL.Path, "q", r.URL.RawQuery}
	default:
		parts = []string{"route", r.URL.Path, "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

// ResponseCache replays successful responses for cfg.TTL.  The key uses
// the concrete request path, so every tenant gets its own entries.
// Only 200 responses that fit in MaxBodyBytes are stored.
func ResponseCache(cfg config.CacheConfig, backend cache.Backend) echo.MiddlewareFunc {
	if !cfg.Enabled || backend == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := responseKey(cfg, c)

			if raw, err := backend.Get(ctx, key); err == nil {
				var e entry
				if json.Unmarshal(raw, &e) == nil {
					h := c.Response().Header()
					for k, vals := range e.Header {
						if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
							continue
						}
						h[k] = vals
					}
					h.Set(HeaderCache, "HIT")
					return c.Blob(e.Status, h.Get(echo.HeaderContentType), e.Body)
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set(HeaderCache, "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.truncated {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del(HeaderCache)
			raw, err := json.Marshal(entry{Status: rec.status, Header: hdr, Body: rec.buf.Bytes()})
			if err == nil {
				_ = backend.Set(context.WithoutCancel(ctx), key, raw, cfg.TTL)
			}
			return nil
		}
	}
}
