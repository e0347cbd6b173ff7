package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/geocontrol/internal/infrastructure/config"
)

const (
	defaultKeyPrefix = "geocontrol:rl:"
	defaultWindow    = time.Minute
	pingTimeout      = 5 * time.Second
)

// Connect creates a Redis client from config and verifies it with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter is a fixed-window request limiter backed by Redis INCR/EXPIRE.
// Counters are shared, so every replica enforces the same budget.
type Limiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
	trusted   []netip.Prefix
	logger    Logger
}

// Logger is the logging surface the limiter needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the one-minute window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithKeyPrefix overrides the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(l *Limiter) {
		if prefix != "" {
			l.keyPrefix = prefix
		}
	}
}

// WithTrustedProxies lets X-Forwarded-For name the client when the direct
// peer is one of these proxies.
func WithTrustedProxies(prefixes ...netip.Prefix) Option {
	return func(l *Limiter) {
		l.trusted = append(l.trusted, prefixes...)
	}
}

// WithLogger sets the logger for Redis failures.
func WithLogger(logger Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// ParseTrustedProxies parses CIDRs or bare addresses.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", e)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// New creates a Limiter allowing limit requests per window per client.
func New(client *redis.Client, limit int, opts ...Option) *Limiter {
	l := &Limiter{
		client:    client,
		limit:     limit,
		window:    defaultWindow,
		keyPrefix: defaultKeyPrefix,
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts one request for id.
func (l *Limiter) Allow(ctx context.Context, id string) (Decision, error) {
	key := l.keyPrefix + id

	// The window is opened with its expiry in the same transaction as the
	// increment, so a counter never exists without a TTL.
	var (
		incr   *redis.IntCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, l.window)
		incr = pipe.Incr(ctx, key)
		ttlCmd = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("counting %s: %w", key, err)
	}

	count := incr.Val()
	ttl := ttlCmd.Val()
	if ttl <= 0 {
		ttl = l.window
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     ttl,
	}, nil
}

// Middleware enforces the limit per client IP. Redis failures let the
// request through. reject writes the 429 response.
func (l *Limiter) Middleware(reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), ClientIP(r, l.trusted))
			if err != nil {
				l.logger.Warn("rate limiter unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(int(d.Reset.Seconds())))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(d.Reset.Seconds())))
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address a request is counted against. The direct
// peer is used unless it is a trusted proxy, in which case X-Forwarded-For is
// walked from the right and the first untrusted hop wins.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if peer == "" {
		return "anonymous"
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !isTrusted(hop, trusted) {
			return hop
		}
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
