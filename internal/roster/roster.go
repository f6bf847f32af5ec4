package roster

import (
	"errors"
	"slices"
)

var ErrEmptyClientID = errors.New("empty client id")
var ErrDuplicateClient = errors.New("client already connected")
var ErrUnknownClient = errors.New("unknown client")
var ErrUnsupportedCommand = errors.New("unsupported command")

// State is the ordered list of connected session ids. Order is arrival order.
type State struct {
	Clients []string
	Version int
}

type CommandType string

const (
	CmdConnect    CommandType = "Connect"
	CmdDisconnect CommandType = "Disconnect"
)

/*
	CmdConnect    -> EvtClientConnected    -> EvtRosterChanged
	CmdDisconnect -> EvtClientDisconnected -> EvtRosterChanged

	Every accepted command bumps Version once, so Reduce over the event log
	gives back the same version the hub broadcast.
*/

type Command struct {
	Type     CommandType
	ClientID string
}

type EventType string

const (
	EvtClientConnected    EventType = "ClientConnected"
	EvtClientDisconnected EventType = "ClientDisconnected"
	EvtRosterChanged      EventType = "RosterChanged"
)

type Event struct {
	Type     EventType
	ClientID string
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.ClientID == "" {
		return nil, s, ErrEmptyClientID
	}

	newState := State{Version: s.Version}

	switch cmd.Type {
	case CmdConnect:
		if Has(s, cmd.ClientID) {
			return nil, s, ErrDuplicateClient
		}

		// Never share the backing array with s, callers keep old snapshots around
		newState.Clients = append(slices.Clone(s.Clients), cmd.ClientID)
		newState.Version++

		events := []Event{
			{Type: EvtClientConnected, ClientID: cmd.ClientID},
			{Type: EvtRosterChanged},
		}
		return events, newState, nil

	case CmdDisconnect:
		i := IndexOf(s, cmd.ClientID)
		if i < 0 {
			return nil, s, ErrUnknownClient
		}

		newState.Clients = slices.Delete(slices.Clone(s.Clients), i, i+1)
		newState.Version++

		events := []Event{
			{Type: EvtClientDisconnected, ClientID: cmd.ClientID},
			{Type: EvtRosterChanged},
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func Reduce(events []Event) State {
	s := NewEmptyState()
	for _, event := range events {
		switch event.Type {
		case EvtClientConnected:
			s.Clients = append(s.Clients, event.ClientID)
		case EvtClientDisconnected:
			s.Clients = slices.DeleteFunc(s.Clients, func(id string) bool {
				return id == event.ClientID
			})
		case EvtRosterChanged:
			s.Version++
		}
	}
	return s
}
