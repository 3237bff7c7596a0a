// Package event implements the fixed out-of-band event registry: one
// byte id maps to a parser that reads zero or more additional bytes
// from the frame stream and returns a structured payload.
package event

// Type is an event-frame id, as carried by the byte immediately
// following the 'E' frame-kind tag.
type Type byte

const (
	SyncBeep            Type = 0x00
	FlightMode          Type = 0x05
	AutotuneCycleStart  Type = 0x0A
	AutotuneCycleResult Type = 0x0B
	AutotuneTargets     Type = 0x0C
	InflightAdjustment  Type = 0x0D
	LoggingResume       Type = 0x0E
	GTuneCycleResult    Type = 0x14
	Custom              Type = 0xFA
	CustomBlank         Type = 0xFB
	TwitchTest          Type = 0xFC
	LogEnd              Type = 0xFF
)

var names = map[Type]string{
	SyncBeep:            "sync-beep",
	FlightMode:          "flight-mode",
	AutotuneCycleStart:  "autotune-cycle-start",
	AutotuneCycleResult: "autotune-cycle-result",
	AutotuneTargets:     "autotune-targets",
	InflightAdjustment:  "inflight-adjustment",
	LoggingResume:       "logging-resume",
	GTuneCycleResult:    "gtune-cycle-result",
	Custom:              "custom",
	CustomBlank:         "custom-blank",
	TwitchTest:          "twitch-test",
	LogEnd:              "log-end",
}

// String renders the event kind's registry name, or "unknown" for an
// id with no registered parser.
func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// Event is one out-of-band occurrence appended to a session's event
// list while its frame stream is drained.
type Event struct {
	Kind Type
	// Payload is nil for event kinds that carry no structured data
	// (the placeholder parsers, and log-end).
	Payload map[string]interface{}
	// Time and LoopIteration mirror the last main-frame values
	// observed by the stream at the moment this event was parsed;
	// both are zero if no main frame has been yielded yet.
	Time          int64
	LoopIteration int64
}
