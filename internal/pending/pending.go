// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package pending holds the IDs of nodes that died during the phase just
// simulated and are waiting to be re-armed with a fresh failure time.
package pending

import (
	"slices"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/appmodel-go/internal/cerr"
)

const ErrDuplicate = cerr.Error("node already pending")

type Queue struct {
	ids    deque.Deque[int]
	queued map[int]struct{}
}

// Push appends id in death order. A node may be pending at most once.
func (q *Queue) Push(id int) error {
	if q.queued == nil {
		q.queued = make(map[int]struct{})
	}
	if _, ok := q.queued[id]; ok {
		return ErrDuplicate
	}
	q.queued[id] = struct{}{}
	q.ids.PushBack(id)
	return nil
}

func (q *Queue) Len() int {
	return q.ids.Len()
}

// Drain empties the queue, returning IDs in the order they were pushed.
func (q *Queue) Drain() []int {
	ids := make([]int, 0, q.ids.Len())
	for q.ids.Len() > 0 {
		id := q.ids.PopFront()
		delete(q.queued, id)
		ids = append(ids, id)
	}
	return ids
}

// DrainByID empties the queue, returning IDs in ascending order.
func (q *Queue) DrainByID() []int {
	ids := q.Drain()
	slices.Sort(ids)
	return ids
}
