package toposort

// SymbolTable assigns dense ids 0..n-1 to keys in first-seen order.
// It is not safe for concurrent use.
type SymbolTable[K comparable] struct {
	keyToID map[K]int
	idToKey []K
}

// NewSymbolTable creates an empty SymbolTable.
func NewSymbolTable[K comparable]() *SymbolTable[K] {
	return &SymbolTable[K]{
		keyToID: make(map[K]int),
	}
}

// Intern returns the id of key, assigning the next free id on first sight.
func (table *SymbolTable[K]) Intern(key K) int {
	if id, exists := table.keyToID[key]; exists {
		return id
	}

	id := len(table.idToKey)
	table.idToKey = append(table.idToKey, key)
	table.keyToID[key] = id

	return id
}

// Lookup returns the id of key without interning it.
func (table *SymbolTable[K]) Lookup(key K) (int, bool) {
	id, exists := table.keyToID[key]

	return id, exists
}

// Resolve returns the key with the given id.
func (table *SymbolTable[K]) Resolve(id int) (K, bool) {
	if id < 0 || id >= len(table.idToKey) {
		var zero K

		return zero, false
	}

	return table.idToKey[id], true
}

// Len returns the number of interned keys.
func (table *SymbolTable[K]) Len() int {
	return len(table.idToKey)
}
