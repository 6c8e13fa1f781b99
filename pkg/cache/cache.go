package cache

import (
	"container/list"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrKeyExists    = errors.New("key already exists in cache")
	ErrInvalidEntry = errors.New("entry weight exceeds cache budget")
)

// Cache is a weighted LRU cache. Every entry carries a weight, and the least
// recently used entries are evicted once the total weight exceeds the budget.
//
// Values are returned as stored, so callers that hand out cached pointers
// must copy them.
type Cache[V any] struct {
	log *logrus.Entry

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
	weight  int
	budget  int
}

type entry[V any] struct {
	key    string
	value  V
	weight int
}

// New returns an empty cache that holds at most budget total weight. name
// identifies the cache in logs.
func New[V any](name string, budget int) *Cache[V] {
	return &Cache[V]{
		log:     logrus.StandardLogger().WithFields(logrus.Fields{"type": "cache", "cache": name}),
		order:   list.New(),
		entries: make(map[string]*list.Element),
		budget:  budget,
	}
}

// Insert adds a new entry. Existing keys are never overwritten.
func (c *Cache[V]) Insert(key string, value V, weight int) error {
	if weight > c.budget {
		return ErrInvalidEntry
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return ErrKeyExists
	}

	c.entries[key] = c.order.PushFront(&entry[V]{
		key:    key,
		value:  value,
		weight: weight,
	})
	c.weight += weight

	c.evict()
	return nil
}

// Retrieve returns the value for key and marks it most recently used.
func (c *Cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	return element.Value.(*entry[V]).value, true
}

// Delete removes key, reporting whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return false
	}

	c.remove(element)
	return true
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Weight returns the current total weight.
func (c *Cache[V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

func (c *Cache[V]) Budget() int {
	return c.budget
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.weight = 0
}

func (c *Cache[V]) evict() {
	for c.weight > c.budget {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}

		evicted := c.remove(oldest)
		c.log.WithFields(logrus.Fields{
			"key":    evicted.key,
			"weight": evicted.weight,
			"spare":  c.budget - c.weight,
		}).Trace("evicted entry")
	}
}

func (c *Cache[V]) remove(element *list.Element) *entry[V] {
	removed := c.order.Remove(element).(*entry[V])
	delete(c.entries, removed.key)
	c.weight -= removed.weight
	return removed
}
