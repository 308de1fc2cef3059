// Package cache memoizes orchestrator outputs keyed by request
// fingerprint, with LRU eviction, absolute TTL and single-flight access so
// concurrent identical requests share one generation.
package cache

import (
	"container/list"
	"sync"
	"time"

	"rag-chat-backend/models"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	fingerprint string
	sessionID   string
	payload     models.AnswerPayload
	expiresAt   time.Time
}

type ResponseCache struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	order     *list.List // front = most recently used
	items     map[string]*list.Element
	bySession map[string]map[string]struct{}

	flight singleflight.Group
	now    func() time.Time
}

func New(capacity int, ttl time.Duration) *ResponseCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ResponseCache{
		capacity:  capacity,
		ttl:       ttl,
		order:     list.New(),
		items:     make(map[string]*list.Element),
		bySession: make(map[string]map[string]struct{}),
		now:       time.Now,
	}
}

// Get returns the cached payload for a fingerprint. Expired entries count
// as misses and are removed on the way out.
func (c *ResponseCache) Get(fingerprint string) (models.AnswerPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fingerprint]
	if !ok {
		return models.AnswerPayload{}, false
	}

	ent := elem.Value.(*entry)
	if c.now().After(ent.expiresAt) {
		c.removeLocked(elem)
		return models.AnswerPayload{}, false
	}

	c.order.MoveToFront(elem)
	return ent.payload, true
}

// Put stores a payload under the fingerprint, associated with the session
// that produced it so history-clearing can invalidate it.
func (c *ResponseCache) Put(fingerprint, sessionID string, payload models.AnswerPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fingerprint]; ok {
		c.removeLocked(elem)
	}

	ent := &entry{
		fingerprint: fingerprint,
		sessionID:   sessionID,
		payload:     payload,
		expiresAt:   c.now().Add(c.ttl),
	}
	c.items[fingerprint] = c.order.PushFront(ent)
	if sessionID != "" {
		if c.bySession[sessionID] == nil {
			c.bySession[sessionID] = make(map[string]struct{})
		}
		c.bySession[sessionID][fingerprint] = struct{}{}
	}

	for c.order.Len() > c.capacity {
		c.removeLocked(c.order.Back())
	}
}

// Invalidate drops every entry produced by the given session.
func (c *ResponseCache) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for fingerprint := range c.bySession[sessionID] {
		if elem, ok := c.items[fingerprint]; ok {
			c.removeLocked(elem)
		}
	}
	delete(c.bySession, sessionID)
}

// Len reports the number of live entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Generate runs fn at most once per in-flight fingerprint: concurrent
// callers with the same fingerprint wait for the first call's result
// instead of invoking the completion service again.
func (c *ResponseCache) Generate(fingerprint string, fn func() (models.AnswerPayload, error)) (models.AnswerPayload, error) {
	v, err, _ := c.flight.Do(fingerprint, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return models.AnswerPayload{}, err
	}
	return v.(models.AnswerPayload), nil
}

func (c *ResponseCache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	ent := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.items, ent.fingerprint)
	if ent.sessionID != "" {
		if set, ok := c.bySession[ent.sessionID]; ok {
			delete(set, ent.fingerprint)
			if len(set) == 0 {
				delete(c.bySession, ent.sessionID)
			}
		}
	}
}
