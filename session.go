package blackbox

import (
	"github.com/skybound/blackbox/event"
	"github.com/skybound/blackbox/frame"
	"github.com/skybound/blackbox/stream"
)

// Frame is one decoded, stitched main-frame row.
type Frame = stream.Frame

// Event is a decoded out-of-band occurrence: sync-beep, flight-mode
// change, inflight tuning adjustment, log-end, and the rest of the
// registered event kinds.
type Event = event.Event

func newSessionStream(buf []byte, ctx *frame.Context, warn func(string)) *stream.Stream {
	return stream.New(frame.NewReader(buf), ctx, warn)
}

// SessionView is one selected session: its public headers, assembled
// field-name list, and the frame/event stream built from it. It is not
// safe for concurrent use.
type SessionView struct {
	index      int
	headers    frame.Headers
	fieldNames []string
	ctx        *frame.Context
	stream     *stream.Stream
}

// Index returns the 1-based session index this view was selected with.
func (s *SessionView) Index() int {
	return s.index
}

// Headers returns the session's header key/value map, excluding the
// "Field ..." keys used only to build field definitions.
func (s *SessionView) Headers() frame.Headers {
	return s.headers
}

// FieldNames returns the ordered column names a caller should line up
// against a yielded Frame's cells: Intra names, then Slow names not
// already listed, then Gps names not already listed excluding "time".
func (s *SessionView) FieldNames() []string {
	return append([]string(nil), s.fieldNames...)
}

// Frames returns a fresh iterator over this session's decoded
// main-frame sequence. The underlying stream is shared: advancing one
// iterator advances any other obtained from the same SessionView.
func (s *SessionView) Frames() *FrameIterator {
	return &FrameIterator{stream: s.stream}
}

// Events returns the events accumulated so far. It is fully populated
// only once a Frames iterator has been driven to exhaustion.
func (s *SessionView) Events() []Event {
	return s.stream.Events()
}

// Stats returns the read/invalid/skipped frame counters.
func (s *SessionView) Stats() (read, invalid, skipped int) {
	return s.ctx.Stats()
}

// FramesToColumns drains the frame sequence into a columnar table
// keyed by FieldNames, for callers that want a dataframe-like view
// rather than a row iterator. It is built on top of Frames, not a
// separate decode path.
func (s *SessionView) FramesToColumns() map[string][]string {
	cols := make(map[string][]string, len(s.fieldNames))
	for _, name := range s.fieldNames {
		cols[name] = nil
	}
	it := s.Frames()
	for it.Scan() {
		fr := it.Frame()
		for i, name := range s.fieldNames {
			if i < len(fr.Cells) {
				cols[name] = append(cols[name], fr.Cells[i].String())
			} else {
				cols[name] = append(cols[name], "")
			}
		}
	}
	return cols
}

// FrameIterator walks a session's decoded main-frame sequence one row
// at a time, in the Scan/Frame shape used by the provider iterators
// this project's record-reading code was adapted from.
type FrameIterator struct {
	stream *stream.Stream
	cur    Frame
}

// Scan advances to the next frame, reporting whether one was
// available. Once it returns false the stream has terminated (a
// log-end event, or the buffer was exhausted) and Events() is fully
// populated.
func (it *FrameIterator) Scan() bool {
	fr, ok := it.stream.Next()
	if !ok {
		return false
	}
	it.cur = fr
	return true
}

// Frame returns the frame produced by the most recent successful
// Scan. Calling it before any successful Scan returns the zero Frame.
func (it *FrameIterator) Frame() Frame {
	return it.cur
}
