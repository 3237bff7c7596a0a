// Package header parses a session's textual "H key:value" header
// block into a Headers map and assembles per-frame-kind field
// definitions from it.
package header

import (
	"bytes"
	"strings"

	"github.com/skybound/blackbox/frame"
)

// ParseLine parses one "H key:value" or "H key:v1,v2,..." line. ok is
// false for anything that isn't a well-formed header line: doesn't
// start with "H ", or the remainder has no ':' separator. A malformed
// line is a recoverable warning at the caller, not a fatal error.
func ParseLine(line string) (name string, values []frame.HeaderValue, ok bool) {
	if len(line) < 2 || line[0] != 'H' || line[1] != ' ' {
		return "", nil, false
	}
	rest := line[2:]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "", nil, false
	}
	name = strings.TrimSpace(rest[:idx])
	if name == "" {
		return "", nil, false
	}
	rawValue := rest[idx+1:]
	parts := strings.Split(rawValue, ",")
	values = make([]frame.HeaderValue, len(parts))
	for i, p := range parts {
		values[i] = frame.TryCast(strings.TrimSpace(p))
	}
	return name, values, true
}

// ParseBlock scans data line by line (splitting on '\n', tolerating a
// trailing '\r') for as long as lines start with 'H', accumulating
// them into a Headers map. It stops at the first line that doesn't
// start with 'H' and returns the number of bytes consumed, which the
// caller uses as the boundary between header block and frame stream.
//
// warn, if non-nil, is called once per line starting with 'H' that
// fails to parse, carrying a human-readable diagnostic; such a line is
// skipped.
func ParseBlock(data []byte, warn func(string)) (frame.Headers, int) {
	headers := frame.Headers{}
	pos := 0
	for pos < len(data) {
		rel := bytes.IndexByte(data[pos:], '\n')
		var line []byte
		var next int
		if rel < 0 {
			line = data[pos:]
			next = len(data)
		} else {
			line = data[pos : pos+rel]
			next = pos + rel + 1
		}
		if len(line) == 0 || line[0] != 'H' {
			return headers, pos
		}
		text := strings.TrimRight(string(line), "\r")
		name, values, ok := ParseLine(text)
		if !ok {
			if warn != nil {
				warn("skipping malformed header line: " + text)
			}
			pos = next
			continue
		}
		headers[name] = values
		pos = next
	}
	return headers, pos
}

// PublicHeaders filters out the "Field ..." keys that exist only to
// feed the field-def builder, leaving the headers a caller actually
// wants to see.
func PublicHeaders(h frame.Headers) frame.Headers {
	out := make(frame.Headers, len(h))
	for k, v := range h {
		if strings.HasPrefix(k, "Field ") {
			continue
		}
		out[k] = v
	}
	return out
}
