package blackbox_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skybound/blackbox"
	"github.com/skybound/blackbox/event"
)

func TestSelectYieldsFieldNamesHeadersFramesAndEvents(t *testing.T) {
	path := writeTempLog(t, oneSessionLog())
	h, err := blackbox.Open(path)
	require.NoError(t, err)
	defer h.Close()

	sv, err := h.Select(1)
	require.NoError(t, err)

	assert.Equal(t, []string{"loopIteration", "time"}, sv.FieldNames())
	_, hasFieldHeader := sv.Headers()["Field I name"]
	assert.False(t, hasFieldHeader, "public headers must exclude Field ... keys")

	it := sv.Frames()
	require.True(t, it.Scan())
	fr := it.Frame()
	require.Len(t, fr.Cells, 2)
	assert.Equal(t, int64(1), fr.Cells[0].I)
	assert.Equal(t, int64(100), fr.Cells[1].I)

	assert.False(t, it.Scan())

	events := sv.Events()
	require.Len(t, events, 1)
	assert.Equal(t, blackbox.Event{Kind: event.SyncBeep, Payload: map[string]interface{}{"time": uint64(42)}}, trimTimers(events[0]))

	// One sync-beep event frame plus one yielded Intra frame: both are
	// processed frames, so read counts both, not just the yielded one.
	read, invalid, _ := sv.Stats()
	assert.Equal(t, 2, read)
	assert.Equal(t, 0, invalid)
}

// trimTimers zeroes the Time/LoopIteration trackers so the comparison
// focuses on Kind/Payload; both are legitimately 0 here since the
// event precedes any decoded frame.
func trimTimers(e blackbox.Event) blackbox.Event {
	e.Time = 0
	e.LoopIteration = 0
	return e
}

func TestFramesToColumnsMatchesFieldNames(t *testing.T) {
	path := writeTempLog(t, oneSessionLog())
	h, err := blackbox.Open(path)
	require.NoError(t, err)
	defer h.Close()

	sv, err := h.Select(1)
	require.NoError(t, err)

	cols := sv.FramesToColumns()
	require.Contains(t, cols, "loopIteration")
	require.Contains(t, cols, "time")
	assert.Equal(t, []string{"1"}, cols["loopIteration"])
	assert.Equal(t, []string{"100"}, cols["time"])
}

func TestSelectRejectsSessionWithNoIntraFields(t *testing.T) {
	data := "H Product:Blackbox flight data recorder by Cleanflight\n" +
		"H Field S name:flightModeFlags\n" +
		"H Field S signed:0\n" +
		"H Field S predictor:0\n" +
		"H Field S encoding:1\n"
	path := writeTempLog(t, []byte(data))
	h, err := blackbox.Open(path)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Select(1)
	assert.Error(t, err)
}
