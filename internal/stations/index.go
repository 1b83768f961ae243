package stations

import (
	"iter"
	"slices"
)

// Index is a read-only mapping that remembers insertion order, so that
// first-match and tie-break rules are reproducible.
type Index[T any] struct {
	keys  []string
	items map[string]T
}

func newIndex[T any]() *Index[T] {
	return &Index[T]{items: make(map[string]T)}
}

// set inserts or replaces key. A replaced key keeps its original position.
func (idx *Index[T]) set(key string, v T) {
	if _, ok := idx.items[key]; !ok {
		idx.keys = append(idx.keys, key)
	}
	idx.items[key] = v
}

func (idx *Index[T]) Get(key string) (T, bool) {
	v, ok := idx.items[key]
	return v, ok
}

func (idx *Index[T]) Len() int { return len(idx.keys) }

func (idx *Index[T]) Keys() []string { return slices.Clone(idx.keys) }

// All iterates entries in insertion order.
func (idx *Index[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		for _, k := range idx.keys {
			if !yield(k, idx.items[k]) {
				return
			}
		}
	}
}
