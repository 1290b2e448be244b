package myhttp

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
)

const (
	// Checkout creation
	LimitStrict = rate.Limit(2)
	BurstStrict = 5

	visitorIdleTimeout = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	sync.Mutex
	limit          rate.Limit
	burst          int
	trustedProxies int
	visitors       map[string]*visitor
	lastPurge      time.Time
	now            func() time.Time
}

// NewRateLimiter identifies clients as described at ClientAddress.
func NewRateLimiter(limit rate.Limit, burst int, trustedProxies int) *RateLimiter {
	return &RateLimiter{
		limit:          limit,
		burst:          burst,
		trustedProxies: trustedProxies,
		visitors: map[string]*visitor{},
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	rl.purgeIdle(now)

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// purgeIdle runs at most once per idle period, on the request path.
func (rl *RateLimiter) purgeIdle(now time.Time) {
	if now.Sub(rl.lastPurge) < visitorIdleTimeout {
		return
	}
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTimeout {
			delete(rl.visitors, key)
		}
	}
	rl.lastPurge = now
}

func (rl *RateLimiter) Stage(writer ResponseWriter) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientAddress(r, rl.trustedProxies)
			if !rl.Allow(key) {
				c := mycontext.ContextFromHTTPRequest(r)
				writer.WriteError(c, w, 1, myerrors.NewTooManyRequestsError(fmt.Errorf("too many requests from %s", key)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddress returns the address of the peer that connected to the outermost trusted
// proxy. Every proxy appends the address it received the request from to X-Forwarded-For,
// so only the last trustedProxies hops are reliable; anything before them is client input.
// Without trusted proxies the connection address is used.
func ClientAddress(r *http.Request, trustedProxies int) string {
	if trustedProxies > 0 {
		hops := forwardedHops(r)
		if len(hops) >= trustedProxies {
			return hops[len(hops)-trustedProxies]
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func forwardedHops(r *http.Request) []string {
	hops := []string{}
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}
