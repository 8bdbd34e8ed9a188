package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// pendingSet tracks task names whose NEW_TASK job has been accepted but has
// not finished. Entries expire after ttl so a job that never completes cannot
// hold a name forever; the ttl runs once while queued and again from the
// moment the job starts.
type pendingSet struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, string]
}

func newPendingSet(ttl time.Duration) *pendingSet {
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &pendingSet{cache: c}
}

// reserve marks name as in flight and returns the token needed to release it.
func (p *pendingSet) reserve(name string) string {
	token := uuid.NewString()
	p.mu.Lock()
	p.cache.Set(name, token, ttlcache.DefaultTTL)
	p.mu.Unlock()
	return token
}

// refresh restarts the ttl of the reservation identified by token, or
// reinstates it if it already expired and nobody else took the name.
func (p *pendingSet) refresh(name, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if item := p.cache.Get(name); item == nil || item.Value() == token {
		p.cache.Set(name, token, ttlcache.DefaultTTL)
	}
}

func (p *pendingSet) has(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Get(name) != nil
}

// release drops the reservation if it is still the one identified by token.
func (p *pendingSet) release(name, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if item := p.cache.Get(name); item != nil && item.Value() == token {
		p.cache.Delete(name)
	}
}

func (p *pendingSet) close() {
	p.cache.Stop()
}
