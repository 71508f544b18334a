// Package wsbridge is the optional local transport that lets a second
// frontend (typically a windowed one, running in its own OS process)
// attach to a running Companion-mode backend over a websocket, per
// SPEC_FULL.md's "Frontend bridge" component. It re-serializes
// directives from internal/directive to/from JSON frames shaped after
// the internal/http/websocket.SocketMessage, and is grounded
// directly on that package's SocketHub/SocketClient design.
package wsbridge

import (
	"github.com/google/uuid"

	"github.com/oblivioncth/clifp/internal/directive"
)

// Frame is the wire form of a directive (or a reply to one), modeled
// on the SocketMessage: Kind/Name identify the directive
// variant, ID correlates a request with its eventual reply the same
// way SocketMessage.Id/Origin do, and Body carries the variant's
// fields as an untyped JSON object for mapstructure decoding on
// either end.
type Frame struct {
	ID   uuid.UUID   `json:"id"`
	ReplyTo *uuid.UUID   `json:"replyTo,omitempty"`
	Source string     `json:"source"`
	Kind  directive.Kind `json:"kind"`
	Name  directive.Name `json:"name"`
	Body  map[string]any `json:"body"`
}

// choiceReply/stringReply/boolReply are the narrow decode targets
// mapstructure.Decode fills in from an inbound reply Frame's Body, one
// per distinct Request directive reply shape.
type choiceReply struct {
	Choice string `mapstructure:"choice"`
}

type stringReply struct {
	Value string `mapstructure:"value"`
}

type boolReply struct {
	Answer bool `mapstructure:"answer"`
}

// encodeFrame projects a directive value (any of the types defined in
// internal/directive) into its wire Frame. Request/Sync directives
// retain their correlation ID so a later reply Frame can be matched
// back to the pending directive via Hub.pending.
func encodeFrame(d any) Frame {
	switch v := d.(type) {
	case *directive.Message:
		return frameOf(v.Envelope, map[string]any{"text": v.Text})
	case *directive.ErrorNotice:
		return frameOf(v.Envelope, map[string]any{
			"code": v.Code, "severity": v.Severity,
			"primary": v.Primary, "specific": v.Specific,
		})
	case *directive.ProcedureStart:
		return frameOf(v.Envelope, map[string]any{"title": v.Title})
	case *directive.ProcedureStop:
		return frameOf(v.Envelope, map[string]any{})
	case *directive.ProcedureProgress:
		return frameOf(v.Envelope, map[string]any{"current": v.Current})
	case *directive.ProcedureScale:
		return frameOf(v.Envelope, map[string]any{"max": v.Max})
	case *directive.ClipboardUpdate:
		return frameOf(v.Envelope, map[string]any{"text": v.Text})
	case *directive.StatusUpdate:
		return frameOf(v.Envelope, map[string]any{"heading": v.Heading, "message": v.Message})
	case *directive.BlockingMessage:
		return frameOf(v.Envelope, map[string]any{"text": v.Text, "selectable": v.Selectable})
	case *directive.BlockingError:
		return frameOf(v.Envelope, map[string]any{
			"code": v.Code, "severity": v.Severity, "primary": v.Primary,
			"specific": v.Specific, "choices": v.Choices, "default": v.Default,
		})
	case *directive.SaveFilename:
		return frameOf(v.Envelope, map[string]any{"caption": v.Caption, "dir": v.Dir, "filter": v.Filter})
	case *directive.ExistingDir:
		return frameOf(v.Envelope, map[string]any{"caption": v.Caption, "dir": v.Dir})
	case *directive.ItemSelection:
		return frameOf(v.Envelope, map[string]any{"caption": v.Caption, "label": v.Label, "items": v.Items})
	case *directive.YesOrNo:
		return frameOf(v.Envelope, map[string]any{"question": v.Question})
	default:
		return Frame{ID: uuid.New(), Body: map[string]any{}}
	}
}

func frameOf(e directive.Envelope, body map[string]any) Frame {
	return Frame{ID: e.ID, Source: e.Source, Kind: e.Kind, Name: e.Name, Body: body}
}
