package director

// Directorate is the composition-based replacement (DESIGN NOTES §9)
// for the original's inheritance-based "thing that can post
// directives" mixin: any component embeds a Directorate value holding
// a Director reference plus its own name tag, and gets a *Director
// with that name threaded automatically through every Post/Request
// call and every log line.
type Directorate struct {
	director *Director
	name   string
}

// NewDirectorate binds d to the component name. Embed the result as a
// value field (not pointer) in Task/Command/process-manager structs.
func NewDirectorate(d *Director, name string) Directorate {
	return Directorate{director: d, name: name}
}

// Name returns this component's Directorate tag, used for log/directive
// source correlation.
func (r Directorate) Name() string { return r.name }

// Director returns the bound Director, or nil if this Directorate was
// never initialized (zero value) - callers should treat a nil Director
// as "headless/no-op", which is how task unit tests run without a
// frontend attached.
func (r Directorate) Director() *Director { return r.director }

// Log is shorthand for r.Director().Log(status, r.Name(), ...), with a
// nil Director no-op so tests can construct tasks without a Director.
func (r Directorate) Log(status LogStatus, format string, args ...any) {
	if r.director == nil {
		return
	}
	r.director.Log(status, r.name, format, args...)
}

// PostMessage is shorthand for Director().PostMessage(Name(), text),
// no-op if no Director is attached.
func (r Directorate) PostMessage(text string) {
	if r.director == nil {
		return
	}
	r.director.PostMessage(r.name, text)
}

// PostError is shorthand for Director().PostError(Name(), ...).
func (r Directorate) PostError(code uint32, sev, primary, specific string) {
	if r.director == nil {
		return
	}
	r.director.PostError(r.name, code, sev, primary, specific)
}

func (r Directorate) PostProcedureStart(title string) {
	if r.director == nil {
		return
	}
	r.director.PostProcedureStart(r.name, title)
}

func (r Directorate) PostProcedureStop() {
	if r.director == nil {
		return
	}
	r.director.PostProcedureStop(r.name)
}

func (r Directorate) PostProcedureProgress(current int64) {
	if r.director == nil {
		return
	}
	r.director.PostProcedureProgress(r.name, current)
}

func (r Directorate) PostProcedureScale(max int64) {
	if r.director == nil {
		return
	}
	r.director.PostProcedureScale(r.name, max)
}

func (r Directorate) PostStatusUpdate(heading, message string) {
	if r.director == nil {
		return
	}
	r.director.PostStatusUpdate(r.name, heading, message)
}

func (r Directorate) PostClipboardUpdate(text string) {
	if r.director == nil {
		return
	}
	r.director.PostClipboardUpdate(r.name, text)
}
