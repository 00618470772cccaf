package input

import (
	"errors"
	"sync"
)

var ErrQueueFull = errors.New("input queue full")

const DefaultQueueDepth = 64

// Queue is a virtual keypad and card reader fed from other goroutines (the
// HTTP API, tests).  It is the only input type shared across goroutines.
type Queue struct {
	mu     sync.Mutex
	keys   []byte
	cards  [][]byte
	depth  int
	halted int
}

func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Queue{depth: depth}
}

func (q *Queue) PushKey(b byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) >= q.depth {
		return ErrQueueFull
	}
	q.keys = append(q.keys, b)
	return nil
}

// PushKeys queues every byte of s, or none if they do not all fit.
func (q *Queue) PushKeys(s string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys)+len(s) > q.depth {
		return ErrQueueFull
	}
	q.keys = append(q.keys, s...)
	return nil
}

func (q *Queue) PushCard(uid []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.cards) >= q.depth {
		return ErrQueueFull
	}
	c := make([]byte, len(uid))
	copy(c, uid)
	q.cards = append(q.cards, c)
	return nil
}

func (q *Queue) ScanKey() (byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) == 0 {
		return 0, false
	}
	b := q.keys[0]
	q.keys = q.keys[1:]
	return b, true
}

func (q *Queue) ReadUID() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.cards) == 0 {
		return nil, false
	}
	c := q.cards[0]
	q.cards = q.cards[1:]
	return c, true
}

func (q *Queue) Halt() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.halted++
	return nil
}

// Pending reports queued keys and cards.
func (q *Queue) Pending() (keys, cards int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys), len(q.cards)
}

// Halts reports how many times the reader was told to halt a card.
func (q *Queue) Halts() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.halted
}
