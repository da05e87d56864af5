// Package gate enforces call budgets against quota-limited external
// services: a hard daily quota for the structured price API and a
// minimum-interval limiter for throttled endpoints.
package gate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDailyLimit keeps a safety margin under the price API's
// 100-calls-per-day plan.
const DefaultDailyLimit = 95

// DailyQuota is a hard per-day call budget that resets at the local day
// boundary. Callers that cannot acquire a slot must fall back
// immediately rather than wait.
type DailyQuota struct {
	mu    sync.Mutex
	limit int
	used  int
	day   time.Time
	now   func() time.Time
}

// NewDailyQuota creates a quota gate with the given daily limit. A
// non-positive limit falls back to DefaultDailyLimit.
func NewDailyQuota(limit int) *DailyQuota {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &DailyQuota{limit: limit, now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (q *DailyQuota) WithNow(now func() time.Time) *DailyQuota {
	q.now = now
	return q
}

// TryAcquire consumes one call slot if the daily budget allows it.
// It never blocks.
func (q *DailyQuota) TryAcquire() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollDay()
	if q.used >= q.limit {
		return false
	}
	q.used++
	return true
}

// Remaining reports how many call slots are left today.
func (q *DailyQuota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollDay()
	return q.limit - q.used
}

// rollDay resets the counter when the local day changes. Caller holds the lock.
func (q *DailyQuota) rollDay() {
	now := q.now()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if !today.Equal(q.day) {
		q.day = today
		q.used = 0
	}
}

// Interval spaces calls at least a minimum duration apart. It delays the
// caller rather than dropping requests.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates an interval gate with the given minimum spacing
// between calls.
func NewInterval(min time.Duration) *Interval {
	return &Interval{limiter: rate.NewLimiter(rate.Every(min), 1)}
}

// Wait blocks until the next call slot is available or the context is done.
func (i *Interval) Wait(ctx context.Context) error {
	return i.limiter.Wait(ctx)
}
