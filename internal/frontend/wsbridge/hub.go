package wsbridge

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"

	"github.com/oblivioncth/clifp/internal/directive"
	"github.com/oblivioncth/clifp/internal/director"
)

// Hub pumps the Director's directive bus out to every attached
// websocket frontend and routes their replies back to the pending
// Sync/Request directive that is blocking the worker thread. It is
// the websocket-attached generalization of SocketHub, whose single
// registerCh/deregisterCh/sendCh/receiveCh/doneCh select loop this
// reproduces almost unchanged - only the payload (a directive.Bus
// subscription instead of an application-specific command map) and the
// reply-routing step (Hub.resolve, which has no analogue in
// SocketHub since its commands were request/response HTTP-shaped, not
// suspend/resume) are new.
type Hub struct {
	directorate director.Directorate
	upgrader  websocket.Upgrader

	mu   sync.Mutex
	clients map[uuid.UUID]*wsClient
	pending map[uuid.UUID]any

	subID   int
	directives <-chan any
	receiveCh chan Frame
	running  bool
}

// New constructs a Hub that will, once Start is called, subscribe to
// d's directive bus and relay it over websocket.
func New(d director.Directorate) *Hub {
	return &Hub{
		directorate: d,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*wsClient),
		pending: make(map[uuid.UUID]any),
	}
}

// Start subscribes to the bus and runs the broadcast/reply-routing
// loop until ctx is cancelled, mirroring SocketHub.Start's
// defer-close/select-loop shape.
func (h *Hub) Start(ctx context.Context) {
	bus := h.directorate.Director().Bus()
	id, ch := bus.Subscribe()
	h.subID = id
	h.directives = ch
	h.receiveCh = make(chan Frame, 16)
	h.running = true

	defer h.closeAll(bus)

	for {
		select {
		case d, ok := <-h.directives:
			if !ok {
				return
			}
			h.broadcast(encodeFrame(d))
			h.trackPending(d)
		case f := <-h.receiveCh:
			h.resolve(f)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) closeAll(bus *directive.Bus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	h.running = false
	bus.Unsubscribe(h.subID)
}

// trackPending remembers a Sync/Request directive by its envelope ID so
// a later reply Frame can be routed back to it; Async directives carry
// no reply and are never tracked.
func (h *Hub) trackPending(d any) {
	id, ok := pendingID(d)
	if !ok {
		return
	}
	h.mu.Lock()
	h.pending[id] = d
	h.mu.Unlock()
}

func pendingID(d any) (uuid.UUID, bool) {
	switch v := d.(type) {
	case *directive.BlockingMessage:
		return v.Envelope.ID, true
	case *directive.BlockingError:
		return v.Envelope.ID, true
	case *directive.SaveFilename:
		return v.Envelope.ID, true
	case *directive.ExistingDir:
		return v.Envelope.ID, true
	case *directive.ItemSelection:
		return v.Envelope.ID, true
	case *directive.YesOrNo:
		return v.Envelope.ID, true
	default:
		return uuid.UUID{}, false
	}
}

// resolve matches an inbound reply Frame against a pending directive by
// ReplyTo and unblocks the task waiting on it, decoding the frame's
// untyped Body with mapstructure into the directive's expected reply
// shape.
func (h *Hub) resolve(f Frame) {
	if f.ReplyTo == nil {
		return
	}

	h.mu.Lock()
	d, ok := h.pending[*f.ReplyTo]
	if ok {
		delete(h.pending, *f.ReplyTo)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	switch v := d.(type) {
	case *directive.BlockingMessage:
		close(v.Done)
	case *directive.BlockingError:
		var r choiceReply
		if err := mapstructure.Decode(f.Body, &r); err == nil {
			v.Reply <- directive.Choice(r.Choice)
		} else {
			v.Reply <- v.Default
		}
	case *directive.SaveFilename:
		decodeStringReply(f.Body, v.Reply)
	case *directive.ExistingDir:
		decodeStringReply(f.Body, v.Reply)
	case *directive.ItemSelection:
		decodeStringReply(f.Body, v.Reply)
	case *directive.YesOrNo:
		var r boolReply
		if err := mapstructure.Decode(f.Body, &r); err == nil {
			v.Reply <- r.Answer
		} else {
			v.Reply <- false
		}
	}
}

func decodeStringReply(body map[string]any, reply chan<- string) {
	var r stringReply
	if err := mapstructure.Decode(body, &r); err == nil {
		reply <- r.Value
	} else {
		reply <- ""
	}
}

func (h *Hub) broadcast(f Frame) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(f); err != nil {
			h.directorate.Log(director.Warn, "frontend '%s' disconnected: %v", c.id, err)
		}
	}
}

// UpgradeToSocket upgrades an incoming HTTP request to a websocket and
// registers the resulting client, matching SocketHub.UpgradeToSocket's
// register/read-loop/deregister sequencing.
func (h *Hub) UpgradeToSocket(w http.ResponseWriter, r *http.Request) {
	if !h.running {
		http.Error(w, "frontend bridge is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.directorate.Log(director.Warn, "websocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{id: uuid.New(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.directorate.Log(director.New, "frontend '%s' attached", c.id)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		c.close()
		h.directorate.Log(director.Remove, "frontend '%s' detached", c.id)
	}()

	if err := c.readLoop(h.receiveCh); err != nil {
		h.directorate.Log(director.Debug, "frontend '%s' read loop closed: %v", c.id, err)
	}
}
