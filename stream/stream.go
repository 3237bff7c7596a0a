// Package stream implements the frame-stream state machine that
// drives one session's byte buffer to completion: dispatching on the
// leading frame-kind byte, running the field pipeline for main
// frames, validating and stitching yielded rows, and appending
// out-of-band occurrences to the session's event list.
package stream

import (
	"github.com/skybound/blackbox/event"
	"github.com/skybound/blackbox/frame"
)

// Desync tolerance thresholds. MaxIterJump is written here as 500*10
// rather than 5000 outright: the upstream tool this format comes from
// spells it that way and we keep the same literal so a future reader
// diffing against it isn't confused by an unexplained constant change.
const (
	MaxTimeJump = 10_000_000
	MaxIterJump = 500 * 10

	// MaxFrameSize bounds how many bytes a single main-frame's field
	// pipeline may legitimately consume. Nothing in this state machine
	// currently enforces it: a decoder underflow (end of buffer mid-field)
	// is already caught structurally by Reader's bounds checks, so no
	// frame can silently run past the buffer regardless of this bound.
	MaxFrameSize = 256
)

// Frame is one stitched, yielded main-frame row: the decoded Intra or
// Inter fields followed by the appended last-slow and last-gps
// snapshot columns, per the session's declared field widths.
type Frame struct {
	Kind  frame.Kind
	Cells []frame.Cell
}

// Stream owns the reader cursor and per-session Context for exactly
// one session traversal. It is not safe for concurrent use; decode two
// sessions in parallel by giving each its own Stream, Reader, and
// Context.
type Stream struct {
	r    *frame.Reader
	ctx  *frame.Context
	warn func(string)

	events   []event.Event
	terminal bool

	lastSlow *frame.MainFrame
	lastGps  *frame.MainFrame

	lastTime     int64
	haveLastTime bool
	lastIter     int64
	haveLastIter bool

	slowWidth int
	gpsWidth  int // Gps field count minus its leading time column.
}

// New builds a Stream over r using ctx's already-built FieldDefs. warn
// receives non-fatal diagnostics (missing field-defs for an observed
// kind); it may be nil.
func New(r *frame.Reader, ctx *frame.Context, warn func(string)) *Stream {
	s := &Stream{r: r, ctx: ctx, warn: warn}
	s.slowWidth = len(ctx.FieldDefs[frame.Slow])
	if gps := len(ctx.FieldDefs[frame.Gps]); gps > 0 {
		s.gpsWidth = gps - 1
	}
	return s
}

// Events returns the event list accumulated so far. It is fully
// populated only once Next has returned false.
func (s *Stream) Events() []event.Event {
	return s.events
}

// Terminal reports whether the stream stopped because a log-end event
// was observed, as opposed to simply reaching the buffer end.
func (s *Stream) Terminal() bool {
	return s.terminal
}

// Next produces the next yielded main frame, or ok=false once the
// stream has terminated (log-end event, or buffer exhausted).
func (s *Stream) Next() (Frame, bool) {
	for {
		if s.terminal || s.r.EOF() {
			return Frame{}, false
		}
		b, ok := s.r.NextByte()
		if !ok {
			return Frame{}, false
		}
		kind, ok := frame.KindFromByte(b)
		if !ok {
			s.ctx.InvalidFrameCount++
			s.ctx.SkippedFrameCount++
			continue
		}
		if kind == frame.Event {
			s.handleEventFrame()
			continue
		}
		if fr, yielded := s.handleMainFrame(kind); yielded {
			return fr, true
		}
	}
}

// handleEventFrame always counts as a read frame, whether or not the
// event itself parses successfully: only the outer "unknown leading
// byte" resync case is tracked separately from a frame that was at
// least recognized as an event and attempted.
func (s *Stream) handleEventFrame() {
	idByte, ok := s.r.NextByte()
	if !ok {
		s.ctx.InvalidFrameCount++
		s.ctx.ReadFrameCount++
		return
	}
	kind := event.Type(idByte)
	parser, ok := event.Parsers[kind]
	if !ok {
		s.ctx.InvalidFrameCount++
		s.ctx.ReadFrameCount++
		return
	}
	payload, ok := parser(s.r)
	if !ok {
		s.ctx.InvalidFrameCount++
		s.ctx.ReadFrameCount++
		return
	}
	s.events = append(s.events, event.Event{
		Kind:          kind,
		Payload:       payload,
		Time:          s.lastTime,
		LoopIteration: s.lastIter,
	})
	s.ctx.ReadFrameCount++
	if kind == event.LogEnd {
		s.terminal = true
	}
}

func (s *Stream) handleMainFrame(kind frame.Kind) (Frame, bool) {
	fdefs, ok := s.ctx.FieldDefs[kind]
	if !ok || len(fdefs) == 0 {
		if s.warn != nil {
			s.warn("no field definitions for frame kind " + kind.String())
		}
		s.ctx.InvalidFrameCount++
		s.ctx.ReadFrameCount++
		s.ctx.SkippedFrameCount++
		return Frame{}, false
	}

	s.ctx.FrameType = kind
	s.ctx.FieldIndex = 0
	cells := make([]frame.Cell, 0, len(fdefs))

	for s.ctx.FieldIndex < len(fdefs) {
		s.ctx.CurrentFrame = cells
		fd := fdefs[s.ctx.FieldIndex]
		decoded, ok := fd.Decoder(s.r, s.ctx)
		if !ok {
			s.ctx.InvalidFrameCount++
			return Frame{}, false
		}
		for _, raw := range decoded {
			pfd := fdefs[s.ctx.FieldIndex]
			cells = append(cells, pfd.Predictor(raw, s.ctx))
			s.ctx.FieldIndex++
		}
	}

	switch kind {
	case frame.Slow:
		snap := frame.MainFrame{Kind: kind, Cells: cells}
		s.lastSlow = &snap
		s.ctx.ReadFrameCount++
		return Frame{}, false
	case frame.Gps:
		s.lastGps = &frame.MainFrame{Kind: kind, Cells: stripTimeColumn(s.ctx, cells)}
		s.ctx.ReadFrameCount++
		return Frame{}, false
	case frame.GpsHome:
		s.ctx.AddFrame(frame.MainFrame{Kind: kind, Cells: cells})
		s.ctx.ReadFrameCount++
		return Frame{}, false
	default: // Intra, Inter
		return s.validateAndStitch(kind, cells)
	}
}

func stripTimeColumn(ctx *frame.Context, cells []frame.Cell) []frame.Cell {
	idx, ok := ctx.IndexOfField(frame.Gps, "time")
	if !ok {
		return cells
	}
	out := make([]frame.Cell, 0, len(cells)-1)
	for i, c := range cells {
		if i == idx {
			continue
		}
		out = append(out, c)
	}
	return out
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Stream) validateAndStitch(kind frame.Kind, cells []frame.Cell) (Frame, bool) {
	if idx, ok := s.ctx.IndexOfField(kind, "time"); ok && idx < len(cells) {
		current := cells[idx].I
		if s.haveLastTime && s.lastTime > current && absInt64(s.lastTime-current) > MaxTimeJump {
			s.ctx.InvalidFrameCount++
			s.ctx.ReadFrameCount++
			s.lastTime = current
			return Frame{}, false
		}
	}
	if idx, ok := s.ctx.IndexOfField(kind, "loopIteration"); ok && idx < len(cells) {
		current := cells[idx].I
		if s.haveLastIter && s.lastIter >= current && (current+s.lastIter) > MaxIterJump {
			s.ctx.InvalidFrameCount++
			s.ctx.ReadFrameCount++
			s.lastIter = current
			return Frame{}, false
		}
	}

	// Corruption look-ahead only applies to the kinds that actually get
	// yielded (Intra/Inter); Slow/Gps/GpsHome never reach here.
	if nb, ok := s.r.Peek(); ok {
		if _, known := frame.KindFromByte(nb); !known {
			s.ctx.InvalidFrameCount++
			s.ctx.SkippedFrameCount++
			s.r.Skip(1)
			return Frame{}, false
		}
	}

	if idx, ok := s.ctx.IndexOfField(kind, "time"); ok && idx < len(cells) {
		s.lastTime = cells[idx].I
		s.haveLastTime = true
	}
	if idx, ok := s.ctx.IndexOfField(kind, "loopIteration"); ok && idx < len(cells) {
		s.lastIter = cells[idx].I
		s.haveLastIter = true
	}

	s.ctx.AddFrame(frame.MainFrame{Kind: kind, Cells: cells})
	s.ctx.ReadFrameCount++

	out := make([]frame.Cell, 0, len(cells)+s.slowWidth+s.gpsWidth)
	out = append(out, cells...)
	if s.slowWidth > 0 {
		if s.lastSlow != nil {
			out = append(out, s.lastSlow.Cells...)
		} else {
			out = append(out, padCells(s.slowWidth)...)
		}
	}
	if s.gpsWidth > 0 {
		if s.lastGps != nil {
			out = append(out, s.lastGps.Cells...)
		} else {
			out = append(out, padCells(s.gpsWidth)...)
		}
	}
	return Frame{Kind: kind, Cells: out}, true
}

func padCells(n int) []frame.Cell {
	out := make([]frame.Cell, n)
	for i := range out {
		out[i] = frame.PadCell()
	}
	return out
}
