package roster

import "slices"

func NewEmptyState() State {
	return State{Clients: []string{}, Version: 0}
}

func Has(s State, id string) bool {
	return slices.Contains(s.Clients, id)
}

func IndexOf(s State, id string) int {
	return slices.Index(s.Clients, id)
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the client list that is never nil, so it
// always encodes as a JSON array.
func Snapshot(s State) []string {
	out := make([]string, len(s.Clients))
	copy(out, s.Clients)
	return out
}
