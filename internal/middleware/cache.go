package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/metrics"
)

// captureWriter forwards the response while keeping up to limit bytes
// of the body.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

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

// CacheClient is the part of the Redis client the response cache
// uses.  *redis.Client implements it.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cached responses live under prefix:e:<generation>:<hash>.  A purge
// bumps prefix:gen before deleting entries, so a response rendered
// from a snapshot older than the purge is stored under a generation
// no reader looks up any more.
func genKey(prefix string) string { return prefix + ":gen" }

func entryPattern(prefix string) string { return prefix + ":e:*" }

// generation returns the current cache generation; a missing key is
// generation 0.
func generation(ctx context.Context, rdb CacheClient, prefix string) (int64, error) {
	n, err := rdb.Get(ctx, genKey(prefix)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// cacheKey is prefix:e:gen:sha1(method route path query).  The concrete
// path is part of the key so /v1/movies/1/users and /v1/movies/2/users
// do not collide.
func cacheKey(prefix string, gen int64, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(strings.Join([]string{r.Method, c.Path(), r.URL.Path, r.URL.RawQuery}, "\x00")))
	return fmt.Sprintf("%s:e:%d:%x", prefix, gen, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
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
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// NewRedisCache serves cached 200 responses for the configured methods
// and stores fresh ones.  Without a Redis client it is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return newRedisCache(cfg, rdb)
}

func newRedisCache(cfg config.CacheConfig, rdb CacheClient) echo.MiddlewareFunc {
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			// read before the handler takes its snapshot
			gen, err := generation(ctx, rdb, cfg.Prefix)
			if err != nil {
				metrics.CacheMisses.Inc()
				return next(c)
			}
			key := cacheKey(cfg.Prefix, gen, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					metrics.CacheHits.Inc()
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}
			metrics.CacheMisses.Inc()

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			// truncated bodies are never stored
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				_ = rdb.SetEx(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err()
			}
			return nil
		}
	}
}

// PurgeOnWrite invalidates the cache after a successful request whose
// method is not cached (i.e. a mutation).  Responses rendered before
// the mutation committed are never served afterwards, even when they
// finish after the purge.
func PurgeOnWrite(cfg config.CacheConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return purgeOnWrite(cfg, rdb, log)
}

func purgeOnWrite(cfg config.CacheConfig, rdb CacheClient, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return err
			}
			if err == nil && c.Response().Status < http.StatusBadRequest {
				ctx := context.WithoutCancel(c.Request().Context())
				if n, perr := PurgeCache(ctx, rdb, cfg.Prefix); perr != nil {
					log.Warn().Err(perr).Msg("cache purge failed")
				} else {
					log.Debug().Int("keys", n).Msg("cache purged")
				}
			}
			return err
		}
	}
}

// PurgeCache starts a new cache generation, then deletes every stored
// entry under prefix and returns how many were removed.
func PurgeCache(ctx context.Context, rdb CacheClient, prefix string) (int, error) {
	if err := rdb.Incr(ctx, genKey(prefix)).Err(); err != nil {
		return 0, err
	}
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, entryPattern(prefix), 200).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
