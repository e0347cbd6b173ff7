// Package ratelimit throttles API clients with a Redis-backed fixed window.
//
// Each client IP gets a counter key that is incremented per request and
// expires with the window. Responses carry X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset. When Redis is unreachable
// the limiter fails open.
package ratelimit
