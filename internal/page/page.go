// Package page is the roster page: on load it registers the connect,
// response and client_list_update handlers on a socket, renders the roster
// into a list element and sends one greeting to the server.
package page

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/roster-socket/internal/client"
	"github.com/DoyleJ11/roster-socket/internal/logging"
	"github.com/DoyleJ11/roster-socket/internal/types"
	"github.com/DoyleJ11/roster-socket/internal/view"
	wire "github.com/DoyleJ11/roster-socket/pkg/types"
)

const Greeting = "Hello, server."

var ErrAlreadyLoaded = errors.New("page already loaded")

// Socket is the part of the event client the page needs.
type Socket interface {
	On(event string, h client.Handler)
	Emit(event string, payload any) error
}

type Page struct {
	list *view.List
	out  io.Writer
	log  *zap.Logger

	mu        sync.RWMutex
	sessionID string
	loaded    bool
}

type Option func(*Page)

func WithLogger(l *zap.Logger) Option {
	return func(p *Page) { p.log = logging.OrNop(l) }
}

// WithOutput repaints the roster to w after every update.
func WithOutput(w io.Writer) Option {
	return func(p *Page) { p.out = w }
}

func New(list *view.List, opts ...Option) *Page {
	p := &Page{list: list, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load wires the handlers and emits the greeting. The greeting is queued on
// the socket whether or not it is connected yet. A page loads once.
func (p *Page) Load(s Socket) error {
	p.mu.Lock()
	if p.loaded {
		p.mu.Unlock()
		return ErrAlreadyLoaded
	}
	p.loaded = true
	p.mu.Unlock()

	s.On(wire.EventConnect, p.onConnect)
	s.On(wire.EventResponse, p.onResponse)
	s.On(wire.EventClientListUpdate, p.onClientListUpdate)

	if err := s.Emit(wire.EventReceiveMessage, wire.ReceiveMessage{Msg: Greeting}); err != nil {
		return fmt.Errorf("emit greeting: %w", err)
	}
	p.log.Info("Sent a message to the server.")
	return nil
}

// SessionID is empty until the server has sent a connect with an id.
func (p *Page) SessionID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionID
}

func (p *Page) List() *view.List { return p.list }

func (p *Page) onConnect(data json.RawMessage) {
	if !types.HasPayload(data) {
		return
	}

	var msg wire.Connect
	if err := json.Unmarshal(data, &msg); err != nil {
		p.log.Debug("ignoring malformed connect payload", zap.Error(err))
		return
	}
	if msg.ClientID == "" {
		return
	}

	p.mu.Lock()
	p.sessionID = msg.ClientID
	p.mu.Unlock()

	p.log.Info("Connected to server with Id: "+msg.ClientID, zap.String("client_id", msg.ClientID))
}

func (p *Page) onResponse(data json.RawMessage) {
	p.log.Info("response", zap.ByteString("data", data))
}

func (p *Page) onClientListUpdate(data json.RawMessage) {
	var msg wire.ClientListUpdate
	if types.HasPayload(data) {
		if err := json.Unmarshal(data, &msg); err != nil {
			p.log.Warn("ignoring malformed client list", zap.Error(err))
			return
		}
	}

	p.list.Replace(view.ClientLines(msg.Clients))
	if p.out != nil {
		if _, err := p.list.WriteTo(p.out); err != nil {
			p.log.Warn("repaint client list", zap.Error(err))
		}
	}
	p.log.Info("Updated connected client list shown on web page.", zap.Int("clients", len(msg.Clients)))
}
