package frame

// Decoder reads zero or more bytes from r, advancing the cursor by
// exactly what it consumes, and returns the decoded cell(s) for the
// field(s) it covers. A decoder that covers k field slots (a "group"
// encoding) returns k cells; ok is false on underflow, and the cursor
// position at the point of failure becomes the stream's resync point.
type Decoder func(r *Reader, ctx *Context) (cells []Cell, ok bool)

// Predictor is a pure function of a raw decoded cell and the running
// per-session Context; it never touches the reader.
type Predictor func(raw Cell, ctx *Context) Cell

// FieldDef is the bound decoding recipe for one field of one frame
// kind, built once per session and immutable afterwards.
type FieldDef struct {
	Name        string
	Signed      bool
	EncodingID  int
	PredictorID int
	Width       int

	Decoder   Decoder
	Predictor Predictor
}

// MainFrame is a snapshot of one successfully decoded frame kept
// around for predictors and the builder's post-decode history (last
// Intra, last Inter, last GPS-home fix).
type MainFrame struct {
	Kind  Kind
	Cells []Cell
}

// Context is the per-session running state threaded through a single
// session's decode: the current frame-in-progress, the rolling
// history predictors read from, and the header values some predictors
// need (minthrottle, vbatref, ...).
type Context struct {
	Headers   Headers
	FieldDefs map[Kind][]FieldDef

	FrameType    Kind
	FieldIndex   int
	CurrentFrame []Cell

	LastIntra   *MainFrame
	LastInter   *MainFrame
	LastGpsHome *MainFrame
	// MainHistory[0] is the most recently added Intra/Inter frame,
	// MainHistory[1] the one before that. Used by predictors that
	// extrapolate across the main stream regardless of frame kind.
	MainHistory [2]*MainFrame

	LastIter int64

	ReadFrameCount    int
	InvalidFrameCount int
	// SkippedFrameCount counts the single-byte resync skips: an
	// unrecognized leading frame-kind byte, a main frame with no bound
	// field-defs, and the corruption look-ahead's post-decode drop. All
	// three also count toward InvalidFrameCount; SkippedFrameCount is
	// the narrower subset of it made up of exactly these three cases.
	SkippedFrameCount int
}

// NewContext builds a fresh Context for one session selection.
func NewContext(headers Headers, fieldDefs map[Kind][]FieldDef) *Context {
	return &Context{Headers: headers, FieldDefs: fieldDefs}
}

// AddFrame folds a successfully decoded non-Event frame into history.
// Slow and Gps frames are tracked by the stream package directly (they
// are never yielded and never participate in predictor history);
// AddFrame is for Intra, Inter, and GpsHome.
func (c *Context) AddFrame(f MainFrame) {
	switch f.Kind {
	case Intra:
		snap := f
		c.LastIntra = &snap
		c.MainHistory[1] = c.MainHistory[0]
		c.MainHistory[0] = &snap
	case Inter:
		snap := f
		c.LastInter = &snap
		c.MainHistory[1] = c.MainHistory[0]
		c.MainHistory[0] = &snap
	case GpsHome:
		snap := f
		c.LastGpsHome = &snap
	}
}

// IndexOfField returns the position of a named field within kind's
// field definitions.
func (c *Context) IndexOfField(kind Kind, name string) (int, bool) {
	for i, fd := range c.FieldDefs[kind] {
		if fd.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Stats returns the read/invalid/skipped counters for the end-of-log
// summary line.
func (c *Context) Stats() (read, invalid, skipped int) {
	return c.ReadFrameCount, c.InvalidFrameCount, c.SkippedFrameCount
}
