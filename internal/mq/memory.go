package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by a Memory backend after Close.
var ErrClosed = errors.New("mq: backend closed")

// Memory is an in-process Backend. Messages published before a subscriber
// attaches are buffered per channel. A handler error redelivers the message
// once, after which it is dropped.
type Memory struct {
	mu     sync.Mutex
	queues map[string]chan Message
	size   int
	closed bool
	done   chan struct{}
}

// NewMemory returns a Memory backend buffering up to size messages per channel.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 64
	}
	return &Memory{
		queues: make(map[string]chan Message),
		size:   size,
		done:   make(chan struct{}),
	}
}

func (m *Memory) queue(channel string) (chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	q, ok := m.queues[channel]
	if !ok {
		q = make(chan Message, m.size)
		m.queues[channel] = q
	}
	return q, nil
}

func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	q, err := m.queue(channel)
	if err != nil {
		return "", err
	}

	msg := Message{ID: uuid.NewString(), Data: append([]byte(nil), data...), Attributes: attrs}
	select {
	case q <- msg:
		return msg.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-m.done:
		return "", ErrClosed
	}
}

func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}
	q, err := m.queue(channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		case msg := <-q:
			if err := handler(ctx, msg); err != nil {
				_ = handler(ctx, msg)
			}
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
