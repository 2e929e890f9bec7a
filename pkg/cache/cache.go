package cache

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrKeyExists = errors.New("key already exists in cache")

// Cache is a weight budgeted LRU cache safe for concurrent use.
type Cache[V any] interface {
	// GetWeight returns the total weight of cached items
	GetWeight() int

	// GetBudget returns the maximum total weight
	GetBudget() int

	// Insert adds an item, evicting the least recently used items until the
	// cache fits its budget. ErrKeyExists is returned for a cached key.
	Insert(key string, value V, weight int) error

	// Retrieve returns a cached item, marking it as most recently used
	Retrieve(key string) (V, bool)

	// Clear removes every item
	Clear()
}

type node[V any] struct {
	next   *node[V]
	prev   *node[V]
	key    string
	value  V
	weight int
}

type cache[V any] struct {
	log *logrus.Entry

	mu     sync.Mutex
	head   *node[V]
	tail   *node[V]
	lookup map[string]*node[V]
	weight int
	budget int
}

// NewCache returns an empty cache with the given weight budget. Evictions are
// logged at debug level under name.
func NewCache[V any](name string, budget int) Cache[V] {
	return &cache[V]{
		log:    logrus.StandardLogger().WithFields(logrus.Fields{"type": "cache", "cache": name}),
		lookup: make(map[string]*node[V]),
		budget: budget,
	}
}

func (c *cache[V]) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *cache[V]) GetBudget() int {
	return c.budget
}

func (c *cache[V]) Insert(key string, value V, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.lookup[key]; found {
		return ErrKeyExists
	}

	n := &node[V]{
		key:    key,
		value:  value,
		weight: weight,
		next:   c.head,
	}
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}

	c.lookup[key] = n
	c.weight += weight

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		if evicted.prev != nil {
			evicted.prev.next = nil
		} else {
			c.head = nil
		}
		c.tail = evicted.prev
		c.weight -= evicted.weight
		delete(c.lookup, evicted.key)

		c.log.WithFields(logrus.Fields{
			"key":          evicted.key,
			"weight":       evicted.weight,
			"spare_weight": c.budget - c.weight,
		}).Debug("evicted cache item")
	}

	return nil
}

func (c *cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, found := c.lookup[key]
	if !found {
		var zero V
		return zero, false
	}

	if n != c.head {
		if n.next != nil {
			n.next.prev = n.prev
		}
		if n.prev != nil {
			n.prev.next = n.next
		}
		if n == c.tail {
			c.tail = n.prev
		}

		n.next = c.head
		n.prev = nil
		c.head.prev = n
		c.head = n
	}

	return n.value, true
}

func (c *cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*node[V])
	c.weight = 0
}
