// Package directive defines the typed backend→frontend message bus
// described in spec.md §4.1. It generalizes the
// internal/event package (a single untyped Payload keyed by an Event
// string) into three distinct families - Async, Sync and Request - each
// carrying named, self-contained fields per the invariant in spec.md §3:
// "every directive carries enough self-contained data to be rendered
// without querying back into the core."
package directive

import "github.com/google/uuid"

// Kind tags which of the three families a directive belongs to.
type Kind int

const (
	KindAsync Kind = iota
	KindSync
	KindRequest
)

// Name identifies a specific directive variant within its family.
type Name string

const (
	// Async
	NameMessage     Name = "message"
	NameError      Name = "error"
	NameProcedureStart  Name = "procedure-start"
	NameProcedureStop  Name = "procedure-stop"
	NameProcedureProgress Name = "procedure-progress"
	NameProcedureScale  Name = "procedure-scale"
	NameClipboardUpdate Name = "clipboard-update"
	NameStatusUpdate   Name = "status-update"

	// Sync
	NameBlockingMessage Name = "blocking-message"

	// Request
	NameBlockingError Name = "blocking-error"
	NameSaveFilename  Name = "save-filename"
	NameExistingDir  Name = "existing-dir"
	NameItemSelection Name = "item-selection"
	NameYesOrNo    Name = "yes-or-no"
)

// Envelope is the common header every directive carries: a correlation
// id (for wire-form request/reply matching over internal/frontend/wsbridge,
// mirroring the SocketMessage.Id/Origin pair) and the source
// component's Directorate tag, for log correlation per spec.md §4.1.
type Envelope struct {
	ID   uuid.UUID
	Source string
	Kind  Kind
	Name  Name
}

// Async directives: fire-and-forget, ordering preserved per source, no
// reply of any kind.
type (
	Message struct {
		Envelope
		Text string
	}

	ErrorNotice struct {
		Envelope
		Code   uint32
		Severity string
		Primary string
		Specific string
	}

	ProcedureStart struct {
		Envelope
		Title string
	}

	ProcedureStop struct {
		Envelope
	}

	ProcedureProgress struct {
		Envelope
		Current int64
	}

	ProcedureScale struct {
		Envelope
		Max int64
	}

	ClipboardUpdate struct {
		Envelope
		Text string
	}

	StatusUpdate struct {
		Envelope
		Heading string
		Message string
	}
)

// Sync directives: backend must wait for rendering acknowledgement
// before continuing, but no typed value is returned. Done is closed by
// the frontend once the message has been fully rendered/dismissed.
type BlockingMessage struct {
	Envelope
	Text    string
	Selectable bool
	Done    chan struct{}
}

// Choice is the typed reply for BlockingError.
type Choice string

const (
	ChoiceOK   Choice = "ok"
	ChoiceCancel Choice = "cancel"
	ChoiceYes  Choice = "yes"
	ChoiceNo   Choice = "no"
	ChoiceRetry Choice = "retry"
)

// Request directives: backend blocks until the frontend supplies a
// typed reply. Each carries a Reply channel the bus resolves the task's
// continuation on; a cancelled/disconnected frontend resolves it with
// the documented empty/cancel default rather than leaving it pending
// forever (spec.md §4.1).
type BlockingError struct {
	Envelope
	Code   uint32
	Severity string
	Primary string
	Specific string
	Choices []Choice
	Default Choice
	Reply  chan Choice
}

type SaveFilename struct {
	Envelope
	Caption string
	Dir   string
	Filter string
	Reply  chan string
}

type ExistingDir struct {
	Envelope
	Caption string
	Dir   string
	Reply  chan string
}

type ItemSelection struct {
	Envelope
	Caption string
	Label  string
	Items  []string
	Reply  chan string
}

type YesOrNo struct {
	Envelope
	Question string
	Reply  chan bool
}
