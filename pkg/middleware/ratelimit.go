package middleware

import (
	"net"
	"net/http"
	"sync"

	"travelwithstudents/pkg/utils"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func (l *clientLimiter) get(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

// RateLimit throttles requests per client IP. Applied to auth and proof
// endpoints where abuse is cheap.
func RateLimit(cfg utils.RateLimitConfig) func(http.Handler) http.Handler {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	limiter := &clientLimiter{
		rps:   rate.Limit(cfg.RPS),
		burst: burst,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !limiter.get(host).Allow() {
				utils.ResponseTooManyRequests(w, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
