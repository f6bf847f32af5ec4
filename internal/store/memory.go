package store

import (
	"context"
	"sync"
)

// Memory keeps the last capacity messages.
type Memory struct {
	mu     sync.RWMutex
	buf    []Message
	next   uint
	cap    int
	closed bool
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{buf: make([]Message, 0, capacity), cap: capacity}
}

func (m *Memory) Append(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.next++
	msg.ID = m.next
	if len(m.buf) == m.cap {
		// drop the oldest
		copy(m.buf, m.buf[1:])
		m.buf = m.buf[:len(m.buf)-1]
	}
	m.buf = append(m.buf, msg)
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	start := 0
	if limit > 0 && limit < len(m.buf) {
		start = len(m.buf) - limit
	}
	out := make([]Message, len(m.buf)-start)
	copy(out, m.buf[start:])
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.buf = nil
	m.mu.Unlock()
	return nil
}
