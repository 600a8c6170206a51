package view

import (
	"container/list"
	"sync"
)

// DefaultCapacity is the number of keep-alive instances retained when no
// capacity is configured.
const DefaultCapacity = 8

// Cache retains keep-alive view instances keyed by route name.
//
// Entries are kept in LRU order (front = most recently used). When the
// cache grows past its capacity the least recently used instance is
// evicted and destroyed. A capacity below zero disables eviction.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
	onEvict  func(*Instance)
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithEvictHook registers a callback invoked for every evicted instance,
// after the instance has been destroyed.
func WithEvictHook(fn func(*Instance)) CacheOption {
	return func(c *Cache) {
		c.onEvict = fn
	}
}

// NewCache creates a cache. A capacity of 0 selects DefaultCapacity.
func NewCache(capacity int, opts ...CacheOption) *Cache {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the retained instance for a route and promotes it to most
// recently used.
func (c *Cache) Get(route string) (*Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[route]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*Instance), true
}

// Put retains an instance under its route name, replacing (and destroying)
// any different instance already stored for that route.
func (c *Cache) Put(inst *Instance) {
	var evicted []*Instance

	c.mu.Lock()
	if el, ok := c.index[inst.Route]; ok {
		if old := el.Value.(*Instance); old != inst {
			evicted = append(evicted, old)
		}
		el.Value = inst
		c.order.MoveToFront(el)
	} else {
		c.index[inst.Route] = c.order.PushFront(inst)
	}
	for c.capacity > 0 && c.order.Len() > c.capacity {
		evicted = append(evicted, c.removeLocked(c.order.Back()))
	}
	c.mu.Unlock()

	for _, e := range evicted {
		c.evict(e)
	}
}

// Remove drops the instance retained for a route without destroying it.
func (c *Cache) Remove(route string) (*Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[route]
	if !ok {
		return nil, false
	}
	return c.removeLocked(el), true
}

// Purge destroys and removes every retained instance.
func (c *Cache) Purge() {
	c.mu.Lock()
	all := make([]*Instance, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		all = append(all, el.Value.(*Instance))
	}
	c.order.Init()
	c.index = make(map[string]*list.Element)
	c.mu.Unlock()

	for _, inst := range all {
		c.evict(inst)
	}
}

// Len returns the number of retained instances.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the configured capacity; negative means unbounded.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Routes returns the retained route names, most recently used first.
func (c *Cache) Routes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		names = append(names, el.Value.(*Instance).Route)
	}
	return names
}

func (c *Cache) removeLocked(el *list.Element) *Instance {
	inst := c.order.Remove(el).(*Instance)
	delete(c.index, inst.Route)
	return inst
}

func (c *Cache) evict(inst *Instance) {
	inst.Destroy()
	if c.onEvict != nil {
		c.onEvict(inst)
	}
}
