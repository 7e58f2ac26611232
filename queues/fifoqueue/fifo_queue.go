// Package fifoqueue provides the bounded, mutex-guarded FIFO used
// as the node's receive queue.
package fifoqueue

import (
	"container/list"
	"sync"
)

// FIFOQueue holds at most cap values in insertion order. Every
// operation takes the queue lock for its duration only; nothing
// blocks waiting for space or data.
type FIFOQueue[T any] struct {
	mu    sync.Mutex
	cap   int
	queue *list.List
}

func NewFIFOQueue[T any](capacity int) *FIFOQueue[T] {
	return &FIFOQueue[T]{
		cap:   capacity,
		queue: list.New(),
	}
}

// Push appends v and reports whether it was kept. At capacity the
// newest arrival is the one dropped; existing entries are never
// evicted. The caller decides whether a drop is worth logging.
func (q *FIFOQueue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queue.Len() >= q.cap {
		return false
	}

	q.queue.PushBack(&v)
	return true
}

// Pop removes and returns the oldest entry. The second return is
// false when the queue is empty.
func (q *FIFOQueue[T]) Pop() (*T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e := q.queue.Front(); e != nil {
		q.queue.Remove(e)
		return e.Value.(*T), true
	}

	return nil, false
}

func (q *FIFOQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.queue.Len()
}

func (q *FIFOQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}
