// Package queue provides a bounded, blocking FIFO queue used as the backbone
// for streamed generation fragments and pending audio playback buffers.
//
// A Queue has two sides: producers call Add, consumers call Next. Add blocks
// when the queue is full; Next blocks when it is empty. The write side can be
// closed gracefully (CloseWrite, consumers drain and then receive ErrDone) or
// torn down with an error (CloseWithError, both sides unblock immediately).
package queue

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrDone is returned by Next after the write side is closed and all queued
// elements have been consumed.
var ErrDone = errors.New("queue: done")

// Queue is a fixed-capacity blocking FIFO. The zero value is not usable;
// create one with New.
type Queue[T any] struct {
	cond *sync.Cond

	mu         sync.Mutex
	buf        []T
	head, tail int64
	closeWrite bool
	closeErr   error
}

// New creates a Queue with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	q := &Queue[T]{buf: make([]T, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add appends one element, blocking while the queue is full.
// Returns an error if the queue has been closed.
func (q *Queue[T]) Add(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closeErr != nil {
			return fmt.Errorf("queue: add to closed queue: %w", q.closeErr)
		}
		if q.closeWrite {
			return fmt.Errorf("queue: add to closed queue: %w", io.ErrClosedPipe)
		}
		if q.tail-q.head < int64(len(q.buf)) {
			break
		}
		q.cond.Wait()
	}
	q.buf[q.tail%int64(len(q.buf))] = v
	q.tail++
	q.cond.Broadcast()
	return nil
}

// Next removes and returns the oldest element, blocking while the queue is
// empty. Returns ErrDone once the write side is closed and the queue has been
// drained, or the close error if the queue was torn down.
func (q *Queue[T]) Next() (v T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == q.tail {
		if q.closeErr != nil {
			return v, fmt.Errorf("queue: next on closed queue: %w", q.closeErr)
		}
		if q.closeWrite {
			return v, ErrDone
		}
		q.cond.Wait()
	}
	if q.closeErr != nil {
		return v, fmt.Errorf("queue: next on closed queue: %w", q.closeErr)
	}
	i := q.head % int64(len(q.buf))
	v = q.buf[i]
	var zero T
	q.buf[i] = zero // release reference
	q.head++
	q.cond.Broadcast()
	return v, nil
}

// Drain discards all queued elements and returns how many were dropped.
// The queue remains open; producers blocked on Add are released.
func (q *Queue[T]) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := int(q.tail - q.head)
	var zero T
	for i := q.head; i < q.tail; i++ {
		q.buf[i%int64(len(q.buf))] = zero
	}
	q.head = q.tail
	q.cond.Broadcast()
	return n
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}

// CloseWrite closes the write side. Queued elements remain readable; once
// drained, Next returns ErrDone. Idempotent.
func (q *Queue[T]) CloseWrite() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeWrite {
		return nil
	}
	q.closeWrite = true
	q.cond.Broadcast()
	return nil
}

// CloseWithError tears the queue down. All blocked and future operations
// return the given error (io.ErrClosedPipe if nil). The first call wins.
func (q *Queue[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return nil
	}
	q.closeErr = err
	q.closeWrite = true
	q.cond.Broadcast()
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (q *Queue[T]) Close() error {
	return q.CloseWithError(io.ErrClosedPipe)
}
