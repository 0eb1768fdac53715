package classifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"truecost/internal/cache"
)

// CachedProvider remembers successful answers so an identical description and
// amount does not hit the remote model twice. Failures are never cached.
type CachedProvider struct {
	next  Provider
	cache cache.Cache[Result]
}

func NewCachedProvider(next Provider, size int, ttl time.Duration) (*CachedProvider, *cache.LRUCache[Result]) {
	lru := cache.NewLRUCache[Result](size, ttl)
	return &CachedProvider{next: next, cache: lru}, lru
}

func (p *CachedProvider) Classify(ctx context.Context, req Request) (Result, error) {
	key := cacheKey(req)
	if res, ok := p.cache.Get(key); ok {
		return res, nil
	}
	res, err := p.next.Classify(ctx, req)
	if err != nil {
		return Result{}, err
	}
	p.cache.Set(key, res)
	return res, nil
}

func cacheKey(req Request) string {
	desc := strings.Join(strings.Fields(strings.ToLower(req.Description)), " ")
	return desc + "|" + strconv.FormatInt(req.Amount.Cents, 10)
}
