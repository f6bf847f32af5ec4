package types

// Every frame on the socket is a JSON text message:
//
//   { "event": string, "data": any }
//
// Server -> Client
// connect:
//   clientId: string            // session id assigned on accept
//
// response:
//   any                         // logged verbatim by the page
//
// client_list_update:
//   clients: string[]           // arrival order, index is display position only
//
// error:
//   error: string
//
// Client -> Server
// receive-message:
//   msg: string

const (
	EventConnect          = "connect"
	EventResponse         = "response"
	EventClientListUpdate = "client_list_update"
	EventError            = "error"
	EventReceiveMessage   = "receive-message"
)

type Connect struct {
	ClientID string `json:"clientId,omitempty"`
}

type ClientListUpdate struct {
	Clients []string `json:"clients"`
}

type ReceiveMessage struct {
	Msg string `json:"msg"`
}

type Response struct {
	Data string `json:"data"`
}

type ErrorPayload struct {
	Message string `json:"error"`
}
