package frame

import "math"

// Encoding ids recognized by the decoder registry. These follow the
// well-known Cleanflight/Betaflight blackbox field-encoding numbering;
// 256 is not a wire value, it is the builder's rewritten id for the
// GPS_coord[1] quirk (see header.Build).
const (
	EncodingSignedVB        = 0
	EncodingUnsignedVB      = 1
	EncodingNeg14Bit        = 3
	EncodingTag8_4S16       = 6
	EncodingTag2_3S32       = 7
	EncodingTag8_8SVB       = 8
	EncodingNull            = 9
	EncodingEliasDeltaU32   = 10
	EncodingEliasDeltaS32   = 11
	EncodingTag2_3SVariable = 12
	EncodingFloat           = 15
	EncodingGPSCoordSpecial = 256
)

// Decoders is the process-wide, read-only decoder registry: encoding
// id -> bound decoder. It is populated once at init and never mutated
// afterward.
var Decoders = map[int]Decoder{
	EncodingSignedVB:        decodeSignedVB,
	EncodingUnsignedVB:      decodeUnsignedVB,
	EncodingNeg14Bit:        decodeNeg14Bit,
	EncodingTag8_4S16:       decodeTag8_4S16,
	EncodingTag2_3S32:       decodeTag2_3S32,
	EncodingTag8_8SVB:       decodeTag8_8SVB,
	EncodingNull:            decodeNull,
	EncodingEliasDeltaU32:   decodeEliasDeltaU32,
	EncodingEliasDeltaS32:   decodeEliasDeltaS32,
	EncodingTag2_3SVariable: decodeTag2_3S32, // decoded with the same wire shape
	EncodingFloat:           decodeFloat32,
	EncodingGPSCoordSpecial: decodeGPSCoordSpecial,
}

// ReadUnsignedVarint reads 7-bit little-endian groups with a
// continuation bit at 0x80, the standard varint used throughout the
// format.
func ReadUnsignedVarint(r *Reader) (uint64, bool) {
	var value uint64
	var shift uint
	for {
		b, ok := r.NextByte()
		if !ok {
			return 0, false
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, true
		}
		shift += 7
		if shift >= 64 {
			return 0, false
		}
	}
}

// ReadSignedVarint zigzag-decodes a varint: (v>>1) ^ -(v&1).
func ReadSignedVarint(r *Reader) (int64, bool) {
	uv, ok := ReadUnsignedVarint(r)
	if !ok {
		return 0, false
	}
	return int64(uv>>1) ^ -int64(uv&1), true
}

func decodeSignedVB(r *Reader, _ *Context) ([]Cell, bool) {
	v, ok := ReadSignedVarint(r)
	if !ok {
		return nil, false
	}
	return []Cell{IntCell(v)}, true
}

func decodeUnsignedVB(r *Reader, _ *Context) ([]Cell, bool) {
	v, ok := ReadUnsignedVarint(r)
	if !ok {
		return nil, false
	}
	return []Cell{IntCell(int64(v))}, true
}

func decodeNull(_ *Reader, _ *Context) ([]Cell, bool) {
	return []Cell{IntCell(0)}, true
}

// decodeNeg14Bit reads a big-endian 16-bit word, sign-extends its low
// 14 bits, and negates the result.
func decodeNeg14Bit(r *Reader, _ *Context) ([]Cell, bool) {
	b, ok := r.ReadBytes(2)
	if !ok {
		return nil, false
	}
	word := int64(b[0])<<8 | int64(b[1])
	word &= 0x3FFF
	if word&0x2000 != 0 {
		word -= 0x4000
	}
	return []Cell{IntCell(-word)}, true
}

// decodeTag8_4S16 reads one selector byte assigning a width class (0,
// 1, 2, or 4 bytes, signed, little-endian) to each of 4 field slots.
func decodeTag8_4S16(r *Reader, _ *Context) ([]Cell, bool) {
	tag, ok := r.NextByte()
	if !ok {
		return nil, false
	}
	cells := make([]Cell, 4)
	for i := 0; i < 4; i++ {
		width := (tag >> (uint(i) * 2)) & 0x3
		v, ok := readSignedWidth(r, width)
		if !ok {
			return nil, false
		}
		cells[i] = IntCell(v)
	}
	return cells, true
}

// decodeTag2_3S32 reads one selector byte assigning a width class to
// each of 3 field slots (6 of the byte's 8 bits are used).
func decodeTag2_3S32(r *Reader, _ *Context) ([]Cell, bool) {
	tag, ok := r.NextByte()
	if !ok {
		return nil, false
	}
	cells := make([]Cell, 3)
	for i := 0; i < 3; i++ {
		width := (tag >> (uint(i) * 2)) & 0x3
		v, ok := readSignedWidth(r, width)
		if !ok {
			return nil, false
		}
		cells[i] = IntCell(v)
	}
	return cells, true
}

// decodeTag8_8SVB reads one selector byte whose 8 bits each flag
// whether the corresponding field slot carries a nonzero signed-vb
// delta; unset bits decode as 0 without consuming bytes.
func decodeTag8_8SVB(r *Reader, _ *Context) ([]Cell, bool) {
	tag, ok := r.NextByte()
	if !ok {
		return nil, false
	}
	cells := make([]Cell, 8)
	for i := 0; i < 8; i++ {
		if tag&(1<<uint(i)) == 0 {
			cells[i] = IntCell(0)
			continue
		}
		v, ok := ReadSignedVarint(r)
		if !ok {
			return nil, false
		}
		cells[i] = IntCell(v)
	}
	return cells, true
}

// decodeFloat32 reads a big-endian 32-bit word and reinterprets its
// bits as an IEEE-754 float32, matching the inflight-adjustment event
// parser's float convention.
func decodeFloat32(r *Reader, _ *Context) ([]Cell, bool) {
	b, ok := r.ReadBytes(4)
	if !ok {
		return nil, false
	}
	bits := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return []Cell{FloatCell(float64(math.Float32frombits(bits)))}, true
}

// decodeGPSCoordSpecial is the scalar decoder selected for
// GPS_coord[1] when its header-declared encoding id is 7: a plain
// signed varint rather than the 3-element TAG2_3S32 group that
// encoding 7 otherwise means.
func decodeGPSCoordSpecial(r *Reader, _ *Context) ([]Cell, bool) {
	v, ok := ReadSignedVarint(r)
	if !ok {
		return nil, false
	}
	return []Cell{IntCell(v)}, true
}

func readSignedWidth(r *Reader, width byte) (int64, bool) {
	switch width {
	case 0:
		return 0, true
	case 1:
		b, ok := r.NextByte()
		if !ok {
			return 0, false
		}
		return int64(int8(b)), true
	case 2:
		b, ok := r.ReadBytes(2)
		if !ok {
			return 0, false
		}
		return int64(int16(uint16(b[0]) | uint16(b[1])<<8)), true
	default: // 3 => 4 bytes
		b, ok := r.ReadBytes(4)
		if !ok {
			return 0, false
		}
		u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return int64(int32(u)), true
	}
}
