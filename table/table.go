// Package table implements the open-addressing hash table used for globals,
// string interning, class methods and instance fields.
//
// Keys are interned strings identified by their heap handle, so two keys are
// equal exactly when their handles are equal. Each key carries the string's
// precomputed hash so the table never needs to reach into the heap, except
// through the predicate passed to FindString.
package table

import (
	"hash/fnv"

	"github.com/deepnoodle-ai/lox/value"
)

const (
	// MaxLoad is the fraction of slots, live entries and tombstones together,
	// that may be occupied before the table grows.
	MaxLoad = 0.75

	// MinCapacity is the capacity of a table after its first insertion.
	MinCapacity = 8
)

// Key identifies an interned string.
type Key struct {
	Ref  value.Ref
	Hash uint32
}

// HashString returns the 32-bit FNV-1a hash of s.
func HashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

type entry struct {
	key   Key
	value value.Value
}

// An empty slot has no key and a nil value. A tombstone has no key and a true
// value, so probe sequences continue past it.
func (e *entry) isEmpty() bool     { return !e.key.Ref.Valid() && e.value.IsNil() }
func (e *entry) isTombstone() bool { return !e.key.Ref.Valid() && !e.value.IsNil() }

// Table is an open-addressing hash map with linear probing. The zero value is
// an empty table ready to use.
type Table struct {
	// count includes tombstones; live excludes them.
	count   int
	live    int
	entries []entry
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return t.live
}

// Capacity returns the number of slots. It is always zero or a power of two.
func (t *Table) Capacity() int {
	return len(t.entries)
}

// findEntry returns the slot holding key, or the slot where key should be
// inserted. Inserting reuses the first tombstone seen along the probe
// sequence. The table must have at least one empty slot.
func findEntry(entries []entry, key Key) *entry {
	mask := uint32(len(entries) - 1)
	index := key.Hash & mask
	var tombstone *entry
	for {
		e := &entries[index]
		switch {
		case e.key.Ref == key.Ref && key.Ref.Valid():
			return e
		case e.isEmpty():
			if tombstone != nil {
				return tombstone
			}
			return e
		case e.isTombstone():
			if tombstone == nil {
				tombstone = e
			}
		}
		index = (index + 1) & mask
	}
}

// Get returns the value stored for key.
func (t *Table) Get(key Key) (value.Value, bool) {
	if t.live == 0 {
		return value.NilValue, false
	}
	e := findEntry(t.entries, key)
	if !e.key.Ref.Valid() {
		return value.NilValue, false
	}
	return e.value, true
}

// Set stores v under key and reports whether the key was newly added.
func (t *Table) Set(key Key, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*MaxLoad {
		t.adjustCapacity(growCapacity(len(t.entries)))
	}
	e := findEntry(t.entries, key)
	isNew := !e.key.Ref.Valid()
	if isNew {
		t.live++
		// Reusing a tombstone does not change count
		if e.isEmpty() {
			t.count++
		}
	}
	e.key = key
	e.value = v
	return isNew
}

// Delete removes key and reports whether it was present. The slot becomes a
// tombstone so probe sequences running through it stay intact.
func (t *Table) Delete(key Key) bool {
	if t.live == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if !e.key.Ref.Valid() {
		return false
	}
	e.key = Key{}
	e.value = value.True
	t.live--
	return true
}

// AddAll copies every live entry of from into t, overwriting existing keys.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if e.key.Ref.Valid() {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks for a key with the given hash whose string content
// satisfies match. It is how the intern table finds an existing string
// before one is allocated, when no handle exists yet to compare against.
func (t *Table) FindString(hash uint32, match func(value.Ref) bool) (value.Ref, bool) {
	if t.live == 0 {
		return value.NoRef, false
	}
	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.isEmpty() {
			return value.NoRef, false
		}
		if e.key.Ref.Valid() && e.key.Hash == hash && match(e.key.Ref) {
			return e.key.Ref, true
		}
		index = (index + 1) & mask
	}
}

// Range calls fn for every live entry until fn returns false.
func (t *Table) Range(fn func(key Key, v value.Value) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key.Ref.Valid() {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

// RemoveUnmarked deletes every entry whose key is not marked. The collector
// calls it on the intern table before sweeping so no entry outlives its
// string.
func (t *Table) RemoveUnmarked(isMarked func(value.Ref) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key.Ref.Valid() && !isMarked(e.key.Ref) {
			e.key = Key{}
			e.value = value.True
			t.live--
		}
	}
}

// adjustCapacity rehashes live entries into a fresh slot array. Tombstones
// are dropped.
func (t *Table) adjustCapacity(capacity int) {
	entries := make([]entry, capacity)
	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if !e.key.Ref.Valid() {
			continue
		}
		dest := findEntry(entries, e.key)
		dest.key = e.key
		dest.value = e.value
		t.count++
	}
	t.entries = entries
	t.live = t.count
}

func growCapacity(capacity int) int {
	if capacity < MinCapacity {
		return MinCapacity
	}
	return capacity * 2
}
