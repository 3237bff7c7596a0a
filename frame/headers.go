package frame

import "strconv"

// HeaderValueKind tags the scalar type a header value was parsed as.
type HeaderValueKind int

const (
	HeaderInt HeaderValueKind = iota
	HeaderFloat
	HeaderString
)

// HeaderValue is one scalar from a header line. Header values are
// decoded preferring integer, then floating, then string.
type HeaderValue struct {
	Kind  HeaderValueKind
	Int   int64
	Float float64
	Str   string
}

func (v HeaderValue) String() string {
	switch v.Kind {
	case HeaderInt:
		return strconv.FormatInt(v.Int, 10)
	case HeaderFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

// TryCast parses a single scalar header token as integer, then
// floating point, then falls back to the raw string.
func TryCast(s string) HeaderValue {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return HeaderValue{Kind: HeaderInt, Int: i}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return HeaderValue{Kind: HeaderFloat, Float: f}
	}
	return HeaderValue{Kind: HeaderString, Str: s}
}

// Headers maps a header name to its (possibly multi-valued) parsed
// value. A scalar header is stored as a single-element slice.
type Headers map[string][]HeaderValue

// Int returns the first value of name as an int64, or def if the
// header is absent or not an integer.
func (h Headers) Int(name string, def int64) int64 {
	vs, ok := h[name]
	if !ok || len(vs) == 0 {
		return def
	}
	if vs[0].Kind != HeaderInt {
		return def
	}
	return vs[0].Int
}

// Scalar returns whether name is present with exactly one value, plus
// that value.
func (h Headers) Scalar(name string) (HeaderValue, bool) {
	vs, ok := h[name]
	if !ok || len(vs) != 1 {
		return HeaderValue{}, false
	}
	return vs[0], true
}
