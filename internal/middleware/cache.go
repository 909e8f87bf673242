package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-catalog/internal/config"
	"github.com/iliyamo/cinema-catalog/internal/metrics"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// truncated reports whether the body outgrew the capture limit.
func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// cacheKeyFrom builds a stable key from the concrete request path, so
// /api/movies/1 and /api/movies/2 never share an entry.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := []string{r.Method, r.URL.Path}
	if strings.ToLower(cfg.KeyStrategy) != "route" {
		parts = append(parts, "q", r.URL.RawQuery)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// cacheIndexKey is the set holding every live cache key under cfg.Prefix.
func cacheIndexKey(cfg config.CacheConfig) string { return cfg.Prefix + ":index" }

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// payloadHeaders are the response headers that describe the cached body.
// Per-request headers (request id, rate limit counters) are never stored.
var payloadHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderContentEncoding,
	"Content-Language",
	"ETag",
	echo.HeaderLastModified,
}

func storedHeaders(h http.Header) http.Header {
	out := make(http.Header, len(payloadHeaders))
	for _, k := range payloadHeaders {
		if v := h.Values(k); len(v) > 0 {
			out[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
		}
	}
	return out
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache serves cached 200 responses for the configured methods and
// stores misses together with their payload headers.  Every stored key is added to
// the index set so NewCachePurge can drop them all at once.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, m *metrics.CatalogMetrics) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	methods := cfg.MethodSet()
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					m.RecordCacheLookup(true)
					out := c.Response().Header()
					for k, vals := range storedHeaders(hdr) {
						if out.Get(k) != "" {
							continue
						}
						out[k] = vals
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}
			m.RecordCacheLookup(false)

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated() {
				return nil
			}

			payload, err := encodePayload(cw.status, storedHeaders(c.Response().Header()), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// Stored after the response; a cancelled request must not
			// abort the write.
			bg := context.Background()
			pipe := rdb.TxPipeline()
			pipe.SetEx(bg, key, payload, ttl)
			pipe.SAdd(bg, cacheIndexKey(cfg), key)
			pipe.Expire(bg, cacheIndexKey(cfg), ttl)
			_, _ = pipe.Exec(bg)
			return nil
		}
	}
}

// NewCachePurge drops every cached response after a successful request
// whose method is not cached, i.e. after every mutation.
func NewCachePurge(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	methods := cfg.MethodSet()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if methods[strings.ToUpper(c.Request().Method)] || err != nil || c.Response().Status >= http.StatusBadRequest {
				return err
			}
			purgeCache(context.Background(), cfg, rdb)
			return nil
		}
	}
}

func purgeCache(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client) {
	index := cacheIndexKey(cfg)
	keys, err := rdb.SMembers(ctx, index).Result()
	if err != nil {
		return
	}
	_ = rdb.Del(ctx, append(keys, index)...).Err()
}
