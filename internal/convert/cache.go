package convert

import "sync"

// lruCache is a thread-safe least-recently-used cache
type lruCache[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*cacheNode[V]
	head     *cacheNode[V] // most recently used side
	tail     *cacheNode[V] // least recently used side
	hits     int64
	misses   int64
}

type cacheNode[V any] struct {
	key   string
	value V
	prev  *cacheNode[V]
	next  *cacheNode[V]
}

// CacheStats provides statistics about cache performance
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Size     int   `json:"current_size"`
	Capacity int   `json:"max_capacity"`
}

func newLRUCache[V any](capacity int) *lruCache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	c := &lruCache[V]{
		capacity: capacity,
		items:    make(map[string]*cacheNode[V]),
		head:     &cacheNode[V]{},
		tail:     &cacheNode[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *lruCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		c.moveToFront(node)
		c.hits++
		return node.value, true
	}
	c.misses++
	var zero V
	return zero, false
}

func (c *lruCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		node.value = value
		c.moveToFront(node)
		return
	}

	node := &cacheNode[V]{key: key, value: value}
	c.addToFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.removeNode(lru)
		delete(c.items, lru.key)
	}
}

func (c *lruCache[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		c.removeNode(node)
		delete(c.items, key)
		return true
	}
	return false
}

func (c *lruCache[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.items), Capacity: c.capacity}
}

func (c *lruCache[V]) moveToFront(node *cacheNode[V]) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *lruCache[V]) addToFront(node *cacheNode[V]) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *lruCache[V]) removeNode(node *cacheNode[V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
