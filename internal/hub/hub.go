package hub

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/roster-socket/internal/logging"
	"github.com/DoyleJ11/roster-socket/internal/roster"
	"github.com/DoyleJ11/roster-socket/internal/store"
	"github.com/DoyleJ11/roster-socket/internal/types"
	wire "github.com/DoyleJ11/roster-socket/pkg/types"
)

type Msg interface{ isHubMsg() }

type Join struct {
	ClientID string
	Outbox   chan types.Envelope // frames for this client; the hub closes it on drop/leave
}

func (Join) isHubMsg() {}

// Leave carries the outbox handed over in Join, so a rejected duplicate
// cannot evict the client that owns the id.
type Leave struct {
	ClientID string
	Outbox   chan types.Envelope
}

func (Leave) isHubMsg() {}

type FromClient struct {
	ClientID string
	Env      types.Envelope
}

func (FromClient) isHubMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isHubMsg() {}

type Shutdown struct{}

func (Shutdown) isHubMsg() {}

type View struct {
	Version   int
	Clients   []string
	NumOutbox int
}

const (
	persistQueueSize = 64
	persistTimeout   = 2 * time.Second
)

type Hub struct {
	inbox    chan Msg
	state    roster.State
	clients  map[string]chan types.Envelope
	messages store.MessageLog
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	// Appends run on their own goroutine so a slow store never stalls the loop.
	persist     chan store.Message
	persistDone chan struct{}
}

func NewHub(parent context.Context, messages store.MessageLog, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if messages == nil {
		messages = store.NewMemory(0)
	}

	h := &Hub{
		inbox:    make(chan Msg, 64), // Small buffer
		state:    roster.NewEmptyState(),
		clients:  make(map[string]chan types.Envelope),
		messages: messages,
		log:      logging.OrNop(log),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),

		persist:     make(chan store.Message, persistQueueSize),
		persistDone: make(chan struct{}),
	}

	go h.persistLoop()
	go h.loop()
	return h
}

// Expose the inbox so tests or WS layer can send messages.
func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// Done is closed once the loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Send delivers m unless ctx ends or the hub has stopped first.
func (h *Hub) Send(ctx context.Context, m Msg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	case <-h.done:
		return false
	}
}

// State asks the loop for a copy of the roster.
func (h *Hub) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !h.Send(ctx, GetState{Reply: reply}) {
		return View{}, h.stoppedErr(ctx)
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-h.done:
		return View{}, context.Canceled
	}
}

func (h *Hub) stoppedErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

func (h *Hub) loop() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.join(msg)

			case Leave:
				out, ok := h.clients[msg.ClientID]
				if !ok || out != msg.Outbox {
					// already dropped as a slow client, or a rejected duplicate
					break
				}
				delete(h.clients, msg.ClientID)
				close(out)
				h.disconnect(msg.ClientID)

			case FromClient:
				h.fromClient(msg)

			case GetState:
				// copy out so callers never share the loop's slices
				msg.Reply <- View{
					Version:   h.state.Version,
					Clients:   roster.Snapshot(h.state),
					NumOutbox: len(h.clients),
				}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) join(msg Join) {
	_, newState, err := roster.Apply(h.state, roster.Command{Type: roster.CmdConnect, ClientID: msg.ClientID})
	if err != nil {
		h.log.Warn("rejecting join", zap.String("client_id", msg.ClientID), zap.Error(err))
		close(msg.Outbox)
		return
	}
	h.state = newState
	h.clients[msg.ClientID] = msg.Outbox
	h.log.Info("client connected", zap.String("client_id", msg.ClientID), zap.Int("clients", len(h.state.Clients)))

	// connect + a greeting response go to the joiner only, then everyone
	// (joiner included) gets the new roster.
	if h.deliver(msg.ClientID, types.MustEnvelope(wire.EventConnect, wire.Connect{ClientID: msg.ClientID})) &&
		h.deliver(msg.ClientID, types.MustEnvelope(wire.EventResponse, wire.Response{Data: "Connected"})) {
		h.broadcastRoster()
		return
	}
	h.disconnect(msg.ClientID)
}

// disconnect removes id from the roster and tells everyone left.
func (h *Hub) disconnect(id string) {
	_, newState, err := roster.Apply(h.state, roster.Command{Type: roster.CmdDisconnect, ClientID: id})
	if err != nil {
		h.log.Debug("disconnect ignored", zap.String("client_id", id), zap.Error(err))
		return
	}
	h.state = newState
	h.log.Info("client disconnected", zap.String("client_id", id), zap.Int("clients", len(h.state.Clients)))
	h.broadcastRoster()
}

func (h *Hub) fromClient(msg FromClient) {
	if _, ok := h.clients[msg.ClientID]; !ok {
		return
	}

	switch msg.Env.Event {
	case wire.EventReceiveMessage:
		var rm wire.ReceiveMessage
		if err := json.Unmarshal(msg.Env.Data, &rm); err != nil {
			h.sendError(msg.ClientID, "bad receive-message payload")
			return
		}
		h.log.Info("Received message from client", zap.String("client_id", msg.ClientID), zap.String("msg", rm.Msg))

		select {
		case h.persist <- store.Message{ClientID: msg.ClientID, Body: rm.Msg, ReceivedAt: time.Now().UTC()}:
		default:
			h.log.Warn("message log backlog full, dropping message", zap.String("client_id", msg.ClientID))
		}

	default:
		h.sendError(msg.ClientID, "unknown event "+msg.Env.Event)
	}
}

func (h *Hub) sendError(id, text string) {
	if !h.deliver(id, types.MustEnvelope(wire.EventError, wire.ErrorPayload{Message: text})) {
		h.disconnect(id)
	}
}

// deliver sends to one client. A full outbox drops the client; the caller
// is responsible for the roster change.
func (h *Hub) deliver(id string, env types.Envelope) bool {
	ch, ok := h.clients[id]
	if !ok {
		return false
	}
	select {
	case ch <- env:
		return true
	default:
		h.log.Warn("dropping slow client", zap.String("client_id", id))
		close(ch)
		delete(h.clients, id)
		return false
	}
}

func (h *Hub) broadcastRoster() {
	for {
		env := types.MustEnvelope(wire.EventClientListUpdate, wire.ClientListUpdate{Clients: roster.Snapshot(h.state)})
		dropped := h.broadcast(env)
		if len(dropped) == 0 {
			return
		}
		// Slow clients leave the roster too, and the survivors need to hear about it.
		for _, id := range dropped {
			if _, next, err := roster.Apply(h.state, roster.Command{Type: roster.CmdDisconnect, ClientID: id}); err == nil {
				h.state = next
			}
		}
	}
}

func (h *Hub) broadcast(env types.Envelope) []string {
	var dropped []string
	for id, ch := range h.clients {
		select {
		case ch <- env:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(h.clients, id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // Tell client no more frames
		delete(h.clients, id)
	}
	h.state = roster.NewEmptyState()
	h.cancel()

	// let queued appends finish before Done, the store is closed after that
	close(h.persist)
	<-h.persistDone
}

func (h *Hub) persistLoop() {
	defer close(h.persistDone)
	for m := range h.persist {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := h.messages.Append(ctx, m)
		cancel()
		if err != nil {
			h.log.Warn("persist message", zap.String("client_id", m.ClientID), zap.Error(err))
		}
	}
}
