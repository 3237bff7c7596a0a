package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skybound/blackbox/event"
	"github.com/skybound/blackbox/frame"
	"github.com/skybound/blackbox/stream"
)

// intraFieldDefs builds a two-field (loopIteration, time) Intra
// definition, both unsigned-varint encoded with the zero predictor, so
// test fixtures can write plain unsigned varints for frame bodies.
func intraFieldDefs() map[frame.Kind][]frame.FieldDef {
	return map[frame.Kind][]frame.FieldDef{
		frame.Intra: {
			{Name: "loopIteration", EncodingID: frame.EncodingUnsignedVB, Decoder: frame.Decoders[frame.EncodingUnsignedVB], PredictorID: frame.PredictorZero, Predictor: frame.Predictors[frame.PredictorZero]},
			{Name: "time", EncodingID: frame.EncodingUnsignedVB, Decoder: frame.Decoders[frame.EncodingUnsignedVB], PredictorID: frame.PredictorZero, Predictor: frame.Predictors[frame.PredictorZero]},
		},
	}
}

func newStream(buf []byte, fieldDefs map[frame.Kind][]frame.FieldDef) *stream.Stream {
	ctx := frame.NewContext(nil, fieldDefs)
	return stream.New(frame.NewReader(buf), ctx, nil)
}

func TestStreamSyncBeepOnly(t *testing.T) {
	// 'E' 0x00 <uvarint=42>
	buf := []byte{'E', 0x00, 42}
	s := newStream(buf, intraFieldDefs())

	_, ok := s.Next()
	assert.False(t, ok)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.SyncBeep, events[0].Kind)
	assert.Equal(t, uint64(42), events[0].Payload["time"])
}

func TestStreamFlightModeEvent(t *testing.T) {
	// 'E' 0x05 <uvarint=3> <uvarint=1>
	buf := []byte{'E', 0x05, 3, 1}
	s := newStream(buf, intraFieldDefs())

	_, ok := s.Next()
	assert.False(t, ok)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.FlightMode, events[0].Kind)
	assert.Equal(t, uint64(3), events[0].Payload["new_flags"])
	assert.Equal(t, uint64(1), events[0].Payload["old_flags"])
	assert.Equal(t, int64(0), events[0].Time)
	assert.Equal(t, int64(0), events[0].LoopIteration)
}

func TestStreamLogEndTerminatesWithoutConsumingGarbage(t *testing.T) {
	// 'E' 0xFF 'End of log\0' <garbage>
	buf := append([]byte{'E', 0xFF}, []byte("End of log\x00garbage")...)
	s := newStream(buf, intraFieldDefs())

	_, ok := s.Next()
	assert.False(t, ok)
	assert.True(t, s.Terminal())

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.LogEnd, events[0].Kind)
}

func TestStreamYieldsIntraFrame(t *testing.T) {
	// 'I' loopIteration=1 time=100, followed by a second 'I' frame so
	// the corruption look-ahead sees a recognized tag.
	buf := []byte{'I', 1, 100, 'I', 2, 101}
	s := newStream(buf, intraFieldDefs())

	fr, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, frame.Intra, fr.Kind)
	require.Len(t, fr.Cells, 2)
	assert.Equal(t, int64(1), fr.Cells[0].I)
	assert.Equal(t, int64(100), fr.Cells[1].I)

	fr2, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, int64(101), fr2.Cells[1].I)

	_, ok = s.Next()
	assert.False(t, ok)
}

func TestStreamTimeDesyncDropsSecondFrame(t *testing.T) {
	// First Intra: loopIteration=1, time=11,000,000 (4-byte varint:
	// 0xC0,0xB1,0x9F,0x05). Second Intra: loopIteration=2, time=100.
	// The backward jump (10,999,900) exceeds MaxTimeJump, so the second
	// frame is dropped as a time desync.
	buf := []byte{
		'I', 1, 0xC0, 0xB1, 0x9F, 0x05,
		'I', 2, 100,
	}
	ctx := frame.NewContext(nil, intraFieldDefs())
	s := stream.New(frame.NewReader(buf), ctx, nil)

	fr, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, int64(11000000), fr.Cells[1].I)

	_, ok = s.Next()
	assert.False(t, ok)

	// Both frames were processed (the first yielded, the second
	// dropped), so read counts both; only the drop counts as invalid.
	read, invalid, _ := ctx.Stats()
	assert.Equal(t, 2, read)
	assert.Equal(t, 1, invalid)
}

func TestStreamUnknownByteResyncs(t *testing.T) {
	buf := []byte{0xAB, 'E', 0x00, 42}
	ctx := frame.NewContext(nil, intraFieldDefs())
	s := stream.New(frame.NewReader(buf), ctx, nil)

	_, ok := s.Next()
	assert.False(t, ok)

	read, invalid, skipped := ctx.Stats()
	assert.Equal(t, 1, invalid)
	assert.Equal(t, 1, skipped, "the unrecognized leading byte is a single-byte resync skip")
	assert.Equal(t, 1, read, "the sync-beep event that follows still counts as a read frame")
	require.Len(t, s.Events(), 1)
}

func TestStreamSlowGpsPaddingWhenUnobserved(t *testing.T) {
	fieldDefs := intraFieldDefs()
	fieldDefs[frame.Slow] = []frame.FieldDef{
		{Name: "flightModeFlags", EncodingID: frame.EncodingUnsignedVB, Decoder: frame.Decoders[frame.EncodingUnsignedVB], Predictor: frame.Predictors[frame.PredictorZero]},
	}
	buf := []byte{'I', 1, 100}
	s := newStream(buf, fieldDefs)

	fr, ok := s.Next()
	require.True(t, ok)
	require.Len(t, fr.Cells, 3)
	assert.True(t, fr.Cells[2].Pad)
}

func TestStreamSlowSnapshotAppendedToLaterFrame(t *testing.T) {
	fieldDefs := intraFieldDefs()
	fieldDefs[frame.Slow] = []frame.FieldDef{
		{Name: "flightModeFlags", EncodingID: frame.EncodingUnsignedVB, Decoder: frame.Decoders[frame.EncodingUnsignedVB], Predictor: frame.Predictors[frame.PredictorZero]},
	}
	// Slow frame carrying value 7, then an Intra frame.
	buf := []byte{'S', 7, 'I', 1, 100}
	s := newStream(buf, fieldDefs)

	fr, ok := s.Next()
	require.True(t, ok)
	require.Len(t, fr.Cells, 3)
	assert.False(t, fr.Cells[2].Pad)
	assert.Equal(t, int64(7), fr.Cells[2].I)
}
