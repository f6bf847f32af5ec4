package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/roster-socket/internal/hub"
	"github.com/DoyleJ11/roster-socket/internal/logging"
	"github.com/DoyleJ11/roster-socket/internal/types"
	wire "github.com/DoyleJ11/roster-socket/pkg/types"
)

var errOutboxClosed = errors.New("outbox closed by hub")

type Options struct {
	// Passed straight to websocket.AcceptOptions. Empty means same-origin only.
	OriginPatterns []string
	OutboxSize     int
	WriteTimeout   time.Duration
	ReadLimit      int64
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 16
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	return o
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()
	log = logging.OrNop(log)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(opts.ReadLimit)

		clientID := uuid.NewString()
		clog := log.With(zap.String("client_id", clientID), zap.String("remote", r.RemoteAddr))

		out := make(chan types.Envelope, opts.OutboxSize)
		if !h.Send(r.Context(), hub.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}
		defer func() {
			// r.Context() may already be done; the hub still needs to hear about it
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			h.Send(ctx, hub.Leave{ClientID: clientID, Outbox: out})
		}()

		g, gctx := errgroup.WithContext(r.Context())

		// Writer goroutine
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case env, ok := <-out:
					if !ok {
						return errOutboxClosed
					}
					ctx, cancel := context.WithTimeout(gctx, opts.WriteTimeout)
					err := wsjson.Write(ctx, conn, env)
					cancel()
					if err != nil {
						return err
					}
				}
			}
		})

		// Reader loop
		g.Go(func() error {
			for {
				_, data, err := conn.Read(gctx)
				if err != nil {
					return err
				}

				var env types.Envelope
				if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
					writeError(gctx, conn, opts.WriteTimeout, "bad json")
					continue
				}

				if !h.Send(gctx, hub.FromClient{ClientID: clientID, Env: env}) {
					return nil
				}
			}
		})

		err = g.Wait()
		switch {
		case errors.Is(err, errOutboxClosed):
			clog.Info("closing connection dropped by hub")
			conn.Close(websocket.StatusGoingAway, "dropped")
		case err == nil:
			conn.Close(websocket.StatusGoingAway, "bye")
		default:
			// Treat clean close/going-away as normal:
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				clog.Debug("client closed connection")
			default:
				clog.Debug("connection ended", zap.Error(err))
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, timeout time.Duration, text string) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, types.MustEnvelope(wire.EventError, wire.ErrorPayload{Message: text}))
}
