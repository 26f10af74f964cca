package community

import (
	"sync"
	"time"
)

// postQuota tracks per-user daily post counts in memory. Counts reset when
// the UTC date changes; restarts reset them too, which matches how strict
// the feed needs to be.
type postQuota struct {
	mu     sync.Mutex
	limit  int
	counts map[string]map[string]int // userID -> YYYY-MM-DD -> count
	now    func() time.Time
}

func newPostQuota(limit int) *postQuota {
	return &postQuota{
		limit:  limit,
		counts: make(map[string]map[string]int),
		now:    time.Now,
	}
}

func (q *postQuota) day() string {
	return q.now().UTC().Format("2006-01-02")
}

// allow reports whether the user may post right now.
func (q *postQuota) allow(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[userID][q.day()] < q.limit
}

// record counts a successful post.
func (q *postQuota) record(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.counts[userID] == nil {
		q.counts[userID] = make(map[string]int)
	}
	q.counts[userID][q.day()]++
}
