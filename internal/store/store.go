package store

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("message log closed")

// Message is one receive-message frame as the server saw it.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ClientID   string    `gorm:"index;not null" json:"clientId"`
	Body       string    `gorm:"not null" json:"msg"`
	ReceivedAt time.Time `gorm:"index;not null" json:"receivedAt"`
}

// MessageLog records inbound messages. Recent returns at most limit
// messages, oldest first.
type MessageLog interface {
	Append(ctx context.Context, m Message) error
	Recent(ctx context.Context, limit int) ([]Message, error)
	Close() error
}

const DefaultMemoryCapacity = 256

// Open picks the backend: postgres when dsn is set, otherwise an in-memory ring.
func Open(ctx context.Context, dsn string, capacity int) (MessageLog, error) {
	if dsn == "" {
		return NewMemory(capacity), nil
	}
	pg, err := OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return pg, nil
}
