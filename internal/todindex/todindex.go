// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package todindex orders live nodes by time of death.
//
// An Index tracks two sets: the keys of every node that is still tracked
// (alive, or dead and not yet rejuvenated), which must be pairwise distinct,
// and the subset of those nodes that are alive, ordered by key. Keys of dead
// nodes stay reserved until Release is called so that freshly drawn keys
// cannot collide with them.
package todindex

import (
	"cmp"

	"github.com/addrummond/heap"
)

type entry struct {
	key float64
	id  int
}

func (a *entry) Cmp(b *entry) int {
	if c := cmp.Compare(a.key, b.key); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

type Index struct {
	live  heap.Heap[entry, heap.Min]
	nlive int
	keys  map[float64]int
}

func New(capacity int) *Index {
	return &Index{
		keys: make(map[float64]int, capacity),
	}
}

// Insert reserves key for id and makes it extractable by PopMin. It returns
// false, leaving the index unchanged, if key is already reserved.
func (x *Index) Insert(key float64, id int) bool {
	if _, ok := x.keys[key]; ok {
		return false
	}
	x.keys[key] = id
	heap.PushOrderable(&x.live, entry{key: key, id: id})
	x.nlive++
	return true
}

// Contains reports whether key is reserved by any tracked node.
func (x *Index) Contains(key float64) bool {
	_, ok := x.keys[key]
	return ok
}

// Release drops the reservation of key. It is only valid for keys that have
// already been popped.
func (x *Index) Release(key float64) {
	delete(x.keys, key)
}

// PopMin removes the live node with the smallest key. The key stays reserved.
func (x *Index) PopMin() (key float64, id int, ok bool) {
	e, ok := heap.PopOrderable(&x.live)
	if !ok {
		return 0, -1, false
	}
	x.nlive--
	return e.key, e.id, true
}

// PeekMin returns the live node with the smallest key without removing it.
func (x *Index) PeekMin() (key float64, id int, ok bool) {
	e, ok := heap.Peek(&x.live)
	if !ok {
		return 0, -1, false
	}
	return e.key, e.id, true
}

func (x *Index) Live() int {
	return x.nlive
}

func (x *Index) Reserved() int {
	return len(x.keys)
}
