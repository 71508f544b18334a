package directive

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Bus fans directives out to every attached frontend, preserving the
// per-source emission order spec.md §5 requires. It generalizes internal/event.eventHandler (a map of Event -> handlers)
// into a single broadcast topic of typed directive values, since the
// Kernel only ever has one active frontend set per run and the
// interesting structure lives in the directive's own Kind/Name rather
// than in per-event channel registration.
type Bus struct {
	mu   sync.Mutex
	subs  map[int]chan any
	nextID int
	closed bool
}

// NewBus constructs an empty, unstarted Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan any)}
}

// Subscribe attaches a new frontend to the bus and returns its
// subscription id (for Unsubscribe) and a receive-only channel of
// directive values. The channel is generously buffered so a slow
// frontend does not stall the worker thread mid task; if it does fill,
// Emit blocks (holding the bus lock) until that frontend drains it. The
// send takes no context, so cancellation does not interrupt it.
func (b *Bus) Subscribe() (int, <-chan any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan any, 64)
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe detaches a frontend and closes its channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// Emit broadcasts an async directive (or the initial post of a
// sync/request directive) to every attached frontend.
func (b *Bus) Emit(d any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		ch <- d
	}
}

// Close tears down the bus, closing every subscriber channel. Further
// Emit calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// NewEnvelope stamps a fresh correlation id for a directive originating
// from the named Directorate component.
func NewEnvelope(source string, kind Kind, name Name) Envelope {
	return Envelope{ID: uuid.New(), Source: source, Kind: kind, Name: name}
}

// EmitSync posts a BlockingMessage and cooperatively suspends the
// calling task until the frontend renders it (Done closed) or ctx is
// cancelled, per spec.md §5's cancellation-at-suspension-points rule.
func (b *Bus) EmitSync(ctx context.Context, msg *BlockingMessage) error {
	if msg.Done == nil {
		msg.Done = make(chan struct{})
	}
	b.Emit(msg)

	select {
	case <-msg.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EmitRequestChoice posts a BlockingError and blocks for its reply,
// falling back to Default if ctx is cancelled before one arrives.
func (b *Bus) EmitRequestChoice(ctx context.Context, req *BlockingError) Choice {
	if req.Reply == nil {
		req.Reply = make(chan Choice, 1)
	}
	b.Emit(req)

	select {
	case c := <-req.Reply:
		return c
	case <-ctx.Done():
		return req.Default
	}
}

// EmitRequestString posts any of SaveFilename/ExistingDir/ItemSelection
// (whichever already has its Reply channel populated) and blocks for
// its string reply, defaulting to "" on cancellation.
func EmitRequestString(ctx context.Context, b *Bus, d any, reply chan string) string {
	if reply == nil {
		reply = make(chan string, 1)
	}
	b.Emit(d)

	select {
	case s := <-reply:
		return s
	case <-ctx.Done():
		return ""
	}
}

// EmitRequestYesOrNo posts a YesOrNo request and blocks for its bool
// reply, defaulting to false on cancellation.
func (b *Bus) EmitRequestYesOrNo(ctx context.Context, req *YesOrNo) bool {
	if req.Reply == nil {
		req.Reply = make(chan bool, 1)
	}
	b.Emit(req)

	select {
	case v := <-req.Reply:
		return v
	case <-ctx.Done():
		return false
	}
}
