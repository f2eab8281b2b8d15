package bot

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	mu       sync.Mutex // serializes events of one user
	limiter  *rate.Limiter
	lastSeen time.Time
	active   int
}

// visitors tracks per-user locks and rate limiters
type visitors struct {
	mu    sync.Mutex
	users map[int64]*visitor
	limit rate.Limit
	burst int
}

func newVisitors(perMinute int) *visitors {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
		burst = perMinute
	}
	return &visitors{
		users: make(map[int64]*visitor),
		limit: limit,
		burst: burst,
	}
}

// acquire locks userID and reports whether its rate limit allows the event.
// The returned release must be called in both cases.
func (v *visitors) acquire(userID int64) (allowed bool, release func()) {
	v.mu.Lock()
	u, ok := v.users[userID]
	if !ok {
		u = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.users[userID] = u
	}
	u.lastSeen = time.Now()
	u.active++
	v.mu.Unlock()

	u.mu.Lock()
	return u.limiter.Allow(), func() {
		u.mu.Unlock()
		v.mu.Lock()
		u.active--
		v.mu.Unlock()
	}
}

// cleanup forgets users idle for longer than idle
func (v *visitors) cleanup(idle time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, u := range v.users {
		if u.active == 0 && time.Since(u.lastSeen) > idle {
			delete(v.users, id)
		}
	}
}

func (v *visitors) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.cleanup(3 * time.Minute)
		}
	}
}
