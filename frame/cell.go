package frame

import "strconv"

// Cell is one decoded (or predicted, or padded) value in a frame row.
// Downstream consumers treat frames as loosely typed rows, so a Cell
// carries enough of a tag to distinguish an integer, a float, and the
// empty-string pad used for not-yet-observed Slow/Gps columns.
type Cell struct {
	Pad   bool
	Float bool
	I     int64
	F     float64
}

// IntCell wraps an integer decode result.
func IntCell(v int64) Cell { return Cell{I: v} }

// FloatCell wraps a floating-point decode result.
func FloatCell(v float64) Cell { return Cell{Float: true, F: v} }

// PadCell is the sentinel used when no Slow/Gps frame has been
// observed yet. It is distinguishable from any real decoded number:
// String() renders it as "", matching the source's untyped pad quirk.
func PadCell() Cell { return Cell{Pad: true} }

// String renders the cell the way the original loosely-typed row model
// would: a plain decimal/float rendering, or "" for a pad cell.
func (c Cell) String() string {
	switch {
	case c.Pad:
		return ""
	case c.Float:
		return strconv.FormatFloat(c.F, 'g', -1, 64)
	default:
		return strconv.FormatInt(c.I, 10)
	}
}
