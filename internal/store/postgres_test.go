package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when DATABASE_URL is set.
func TestPostgres_AppendRecent(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer p.Close()

	client := uuid.NewString()
	now := time.Now().UTC()
	require.NoError(t, p.Append(ctx, Message{ClientID: client, Body: "first", ReceivedAt: now}))
	require.NoError(t, p.Append(ctx, Message{ClientID: client, Body: "second", ReceivedAt: now.Add(time.Millisecond)}))

	got, err := p.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Body)
	assert.Equal(t, "second", got[1].Body)
}
