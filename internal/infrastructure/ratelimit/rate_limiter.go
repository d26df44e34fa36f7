package ratelimit

import (
	"sync"
	"time"
)

// Actions with their own budgets. Anything else falls back to the
// default bucket.
const (
	ActionSendMessage      = "send_message"
	ActionOpenConversation = "open_conversation"
	ActionCreateRequest    = "create_request"
	ActionUploadFile       = "upload_file"
)

type bucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	mu         sync.Mutex
}

func newBucket(maxTokens, refillRate int, refillTime time.Duration) *bucket {
	return &bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: time.Now(),
	}
}

// take consumes a token when one is available, otherwise reports how
// long until the next refill.
func (b *bucket) take() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	if refills := int(elapsed / b.refillTime); refills > 0 {
		b.tokens += refills * b.refillRate
		if b.tokens > b.maxTokens {
			b.tokens = b.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}

	return false, b.lastRefill.Add(b.refillTime).Sub(now)
}

// Limiter rate-limits per (user, action) with token buckets. Buckets are
// created lazily and swept when idle.
type Limiter struct {
	buckets map[string]*bucket
	mu      sync.RWMutex
}

func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
	}
}

func bucketFor(action string) *bucket {
	switch action {
	case ActionSendMessage:
		// 10 messages per minute.
		return newBucket(10, 1, 6*time.Second)
	case ActionOpenConversation:
		// 5 new threads per hour.
		return newBucket(5, 1, 12*time.Minute)
	case ActionCreateRequest:
		// 5 handover/claim requests per hour.
		return newBucket(5, 1, 12*time.Minute)
	case ActionUploadFile:
		// 12 uploads per hour.
		return newBucket(12, 1, 5*time.Minute)
	default:
		// 20 actions per minute.
		return newBucket(20, 1, 3*time.Second)
	}
}

// Allow reports whether the user may perform the action now; when
// denied it also returns the wait until the next token.
func (l *Limiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		if b, ok = l.buckets[key]; !ok {
			b = bucketFor(action)
			l.buckets[key] = b
		}
		l.mu.Unlock()
	}

	return b.take()
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > time.Hour {
			delete(l.buckets, key)
		}
	}
}

// StartSweeper drops idle buckets periodically so the map does not grow
// with every user the service ever saw.
func (l *Limiter) StartSweeper() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			l.sweep()
		}
	}()
}
