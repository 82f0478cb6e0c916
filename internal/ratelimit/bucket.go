package ratelimit

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/time/rate"
)

// Bucket is a per-key token bucket: each key sustains rps events per second
// with bursts up to burst. A zero rps disables limiting.
type Bucket struct {
	rps   rate.Limit
	burst int

	mu   sync.Mutex
	keys *simplelru.LRU[string, *rate.Limiter]
}

// NewBucket creates a keyed token bucket tracking at most DefaultMaxKeys keys.
func NewBucket(rps float64, burst int) *Bucket {
	keys, _ := simplelru.NewLRU[string, *rate.Limiter](DefaultMaxKeys, nil)
	b := &Bucket{
		rps:   rate.Limit(rps),
		burst: max(1, burst),
		keys:  keys,
	}
	if rps <= 0 {
		b.rps = rate.Inf
	}
	return b
}

// Allow consumes one token of key without waiting.
func (b *Bucket) Allow(key string) bool {
	if b.rps == rate.Inf {
		return true
	}
	if key == "" {
		key = UnknownKey
	}

	b.mu.Lock()
	lim, ok := b.keys.Get(key)
	if !ok {
		lim = rate.NewLimiter(b.rps, b.burst)
		b.keys.Add(key, lim)
	}
	b.mu.Unlock()

	return lim.Allow()
}
