package roster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustApply(t *testing.T, s State, cmd Command) State {
	t.Helper()
	_, next, err := Apply(s, cmd)
	require.NoError(t, err)
	return next
}

func TestApply_ConnectAppendsInArrivalOrder(t *testing.T) {
	s := NewEmptyState()
	s = mustApply(t, s, Command{Type: CmdConnect, ClientID: "a"})
	s = mustApply(t, s, Command{Type: CmdConnect, ClientID: "b"})
	s = mustApply(t, s, Command{Type: CmdConnect, ClientID: "c"})

	assert.Equal(t, []string{"a", "b", "c"}, s.Clients)
	assert.Equal(t, 3, s.Version)
}

func TestApply_DisconnectKeepsOrderOfTheRest(t *testing.T) {
	s := NewEmptyState()
	for _, id := range []string{"a", "b", "c"} {
		s = mustApply(t, s, Command{Type: CmdConnect, ClientID: id})
	}

	events, next, err := Apply(s, Command{Type: CmdDisconnect, ClientID: "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, next.Clients)
	assert.Equal(t, 4, next.Version)
	assert.Equal(t, -1, IndexOf(next, "b"))
	assert.Equal(t, 1, IndexOf(next, "c"))
	assert.True(t, ContainsEvent(events, EvtClientDisconnected))
	assert.True(t, ContainsEvent(events, EvtRosterChanged))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := NewEmptyState()
	s = mustApply(t, s, Command{Type: CmdConnect, ClientID: "a"})
	s = mustApply(t, s, Command{Type: CmdConnect, ClientID: "b"})
	before := Snapshot(s)

	_ = mustApply(t, s, Command{Type: CmdDisconnect, ClientID: "a"})
	_ = mustApply(t, s, Command{Type: CmdConnect, ClientID: "z"})

	assert.Equal(t, before, s.Clients)
}

func TestApply_Rejections(t *testing.T) {
	base := NewEmptyState()
	base.Clients = []string{"a"}

	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{name: "duplicate connect", cmd: Command{Type: CmdConnect, ClientID: "a"}, wantErr: ErrDuplicateClient},
		{name: "unknown disconnect", cmd: Command{Type: CmdDisconnect, ClientID: "x"}, wantErr: ErrUnknownClient},
		{name: "empty id", cmd: Command{Type: CmdConnect}, wantErr: ErrEmptyClientID},
		{name: "bogus command", cmd: Command{Type: "Rename", ClientID: "a"}, wantErr: ErrUnsupportedCommand},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(base, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if events != nil {
				t.Fatalf("expected no events on rejection, got %+v", events)
			}
			assert.Equal(t, base, next)
		})
	}
}

func TestReduce_MatchesApply(t *testing.T) {
	cmds := []Command{
		{Type: CmdConnect, ClientID: "a"},
		{Type: CmdConnect, ClientID: "b"},
		{Type: CmdDisconnect, ClientID: "a"},
		{Type: CmdConnect, ClientID: "c"},
	}

	s := NewEmptyState()
	var log []Event
	for _, cmd := range cmds {
		events, next, err := Apply(s, cmd)
		require.NoError(t, err)
		log = append(log, events...)
		s = next
	}

	rebuilt := Reduce(log)
	assert.Equal(t, s.Clients, rebuilt.Clients)
	assert.Equal(t, s.Version, rebuilt.Version)
}

func TestSnapshot_EmptyIsNotNil(t *testing.T) {
	snap := Snapshot(State{})
	require.NotNil(t, snap)
	assert.Empty(t, snap)
}
