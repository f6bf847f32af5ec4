package types

// RosterSnapshot is what GET /clients returns.
//   version: number   // bumped on every connect/disconnect
//   clients: string[]
type RosterSnapshot struct {
	Version int      `json:"version"`
	Clients []string `json:"clients"`
}
