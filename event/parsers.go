package event

import (
	"math"

	"github.com/grailbio/base/log"

	"github.com/skybound/blackbox/frame"
)

// Parser reads an event's payload from r, returning nil for event
// kinds that carry no structured data. ok is false only on underflow;
// an event frame whose parser returns !ok is frame-level corruption,
// resynchronized by the caller exactly like a failed main-frame
// decode.
type Parser func(r *frame.Reader) (payload map[string]interface{}, ok bool)

// Parsers is the process-wide, read-only event registry: event id ->
// bound parser. An id with no entry is an unrecognized event frame.
var Parsers = map[Type]Parser{
	SyncBeep:            parseSyncBeep,
	FlightMode:          parseFlightMode,
	InflightAdjustment:  parseInflightAdjustment,
	LogEnd:              parseLogEnd,
	AutotuneCycleStart:  parseNoPayload,
	AutotuneCycleResult: parseNoPayload,
	AutotuneTargets:     parseNoPayload,
	LoggingResume:       parseNoPayload,
	GTuneCycleResult:    parseNoPayload,
	Custom:              parseNoPayload,
	CustomBlank:         parseNoPayload,
	TwitchTest:          parseNoPayload,
}

func parseNoPayload(r *frame.Reader) (map[string]interface{}, bool) {
	return nil, true
}

func parseSyncBeep(r *frame.Reader) (map[string]interface{}, bool) {
	t, ok := frame.ReadUnsignedVarint(r)
	if !ok {
		return nil, false
	}
	return map[string]interface{}{"time": t}, true
}

func parseFlightMode(r *frame.Reader) (map[string]interface{}, bool) {
	newFlags, ok := frame.ReadUnsignedVarint(r)
	if !ok {
		return nil, false
	}
	oldFlags, ok := frame.ReadUnsignedVarint(r)
	if !ok {
		return nil, false
	}
	return map[string]interface{}{"new_flags": newFlags, "old_flags": oldFlags}, true
}

// endOfLogMessage is the literal sentinel logging-end verifies is
// present immediately after the event id byte, without consuming it.
var endOfLogMessage = []byte("End of log\x00")

func parseLogEnd(r *frame.Reader) (map[string]interface{}, bool) {
	if !r.HasSubsequent(endOfLogMessage) {
		log.Error.Printf("blackbox: invalid 'End of log' message")
	}
	return nil, true
}

// inflightAdjustmentFunction names and optionally scales one
// inflight-adjustment function index. Scale applies to the integer
// variant; ScaleF, when present, overrides it for the float variant.
// Carried in full (21 entries), matching the firmware's own table.
type inflightAdjustmentFunction struct {
	Name   string
	Scale  float64
	HasScale bool
	ScaleF   float64
	HasScaleF bool
}

var inflightAdjustmentFunctions = []inflightAdjustmentFunction{
	{Name: "None"},
	{Name: "RC Rate", Scale: 0.01, HasScale: true},
	{Name: "RC Expo", Scale: 0.01, HasScale: true},
	{Name: "Throttle Expo", Scale: 0.01, HasScale: true},
	{Name: "Pitch & Roll Rate", Scale: 0.01, HasScale: true},
	{Name: "Yaw rate", Scale: 0.01, HasScale: true},
	{Name: "Pitch & Roll P", Scale: 0.1, HasScale: true, ScaleF: 1, HasScaleF: true},
	{Name: "Pitch & Roll I", Scale: 0.001, HasScale: true, ScaleF: 0.1, HasScaleF: true},
	{Name: "Pitch & Roll D", ScaleF: 1000, HasScaleF: true},
	{Name: "Yaw P", Scale: 0.1, HasScale: true, ScaleF: 1, HasScaleF: true},
	{Name: "Yaw I", Scale: 0.001, HasScale: true, ScaleF: 0.1, HasScaleF: true},
	{Name: "Yaw D", ScaleF: 1000, HasScaleF: true},
	{Name: "Rate Profile"},
	{Name: "Pitch Rate", Scale: 0.01, HasScale: true},
	{Name: "Roll Rate", Scale: 0.01, HasScale: true},
	{Name: "Pitch P", Scale: 0.1, HasScale: true, ScaleF: 1, HasScaleF: true},
	{Name: "Pitch I", Scale: 0.001, HasScale: true, ScaleF: 0.1, HasScaleF: true},
	{Name: "Pitch D", ScaleF: 1000, HasScaleF: true},
	{Name: "Roll P", Scale: 0.1, HasScale: true, ScaleF: 1, HasScaleF: true},
	{Name: "Roll I", Scale: 0.001, HasScale: true, ScaleF: 0.1, HasScaleF: true},
	{Name: "Roll D", ScaleF: 1000, HasScaleF: true},
}

// parseInflightAdjustment decodes a tuning-adjustment event: the tag
// byte's low 7 bits select a function in the table above, the high bit
// selects integer-signed-varint vs. float32 encoding for the raw
// value.
func parseInflightAdjustment(r *frame.Reader) (map[string]interface{}, bool) {
	tag, ok := r.NextByte()
	if !ok {
		return nil, false
	}
	funcIdx := int(tag & 0x7F)

	var raw float64
	isFloat := tag >= 128
	if !isFloat {
		v, ok := frame.ReadSignedVarint(r)
		if !ok {
			return nil, false
		}
		raw = float64(v)
	} else {
		bits, ok := r.ReadBytes(4)
		if !ok {
			return nil, false
		}
		u := uint32(bits[0])<<24 | uint32(bits[1])<<16 | uint32(bits[2])<<8 | uint32(bits[3])
		raw = float64(math.Float32frombits(u))
	}

	result := map[string]interface{}{
		"name":  "Unknown",
		"func":  funcIdx,
		"value": roundTo4(raw),
	}
	if funcIdx < len(inflightAdjustmentFunctions) {
		descr := inflightAdjustmentFunctions[funcIdx]
		result["name"] = descr.Name

		scale := 1.0
		if descr.HasScale {
			scale = descr.Scale
		}
		if isFloat && descr.HasScaleF {
			scale = descr.ScaleF
		}
		result["value"] = roundTo4(raw * scale)
	}
	return result, true
}

func roundTo4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
