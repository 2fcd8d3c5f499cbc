package logx

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle gates noisy log lines per key (e.g. per task name).
//
// Each key gets its own token bucket; Allow reports whether a line for that
// key may be written now. The key map is bounded and reset when it grows
// past maxKeys.
type Throttle struct {
	mu      sync.Mutex
	every   time.Duration
	burst   int
	maxKeys int
	keys    map[string]*rate.Limiter
}

// NewThrottle allows `burst` lines per key and then one line per `every`.
func NewThrottle(every time.Duration, burst int) *Throttle {
	if every <= 0 {
		every = 5 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{every: every, burst: burst, maxKeys: 1024, keys: map[string]*rate.Limiter{}}
}

func (t *Throttle) Allow(key string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.keys[key]
	if !ok {
		if len(t.keys) >= t.maxKeys {
			t.keys = map[string]*rate.Limiter{}
		}
		lim = rate.NewLimiter(rate.Every(t.every), t.burst)
		t.keys[key] = lim
	}
	return lim.Allow()
}
