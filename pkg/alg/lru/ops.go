package lru

// Get retrieves a value from the cache and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()

	ent, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.moveToFront(ent)
	value := ent.value
	c.mu.Unlock()

	c.hits.Add(1)

	return c.clone(value), true
}

// Put adds or updates a key-value pair, evicting the least recently used
// entry when the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	value = c.clone(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		ent.value = value
		c.moveToFront(ent)

		return
	}

	for len(c.entries) >= c.maxEntries && c.tail != nil {
		c.evictTail()
	}

	ent := &entry[K, V]{key: key, value: value}
	c.entries[key] = ent
	c.addToFront(ent)
}

// Remove deletes key. It reports whether the key was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return false
	}

	c.removeFromList(ent)
	delete(c.entries, key)

	return true
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.head = nil
	c.tail = nil
}

func (c *Cache[K, V]) clone(value V) V {
	if c.cloneFunc == nil {
		return value
	}

	return c.cloneFunc(value)
}

// evictTail removes the least recently used entry.
func (c *Cache[K, V]) evictTail() {
	victim := c.tail
	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.evictions.Add(1)
}

// moveToFront moves an entry to the head of the LRU list.
func (c *Cache[K, V]) moveToFront(ent *entry[K, V]) {
	if ent == c.head {
		return
	}

	c.removeFromList(ent)
	c.addToFront(ent)
}

// addToFront adds an entry at the head of the LRU list.
func (c *Cache[K, V]) addToFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

// removeFromList removes an entry from the LRU list.
func (c *Cache[K, V]) removeFromList(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}

	ent.prev = nil
	ent.next = nil
}
