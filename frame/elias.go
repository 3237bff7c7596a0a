package frame

// bitReader reads MSB-first bits from a Reader's underlying byte
// stream, consuming whole bytes from the Reader only as needed. It
// leaves the Reader's cursor positioned on the next unread byte once
// its last partially-consumed byte is exhausted.
type bitReader struct {
	r     *Reader
	cur   byte
	nbits uint
}

func (br *bitReader) bit() (byte, bool) {
	if br.nbits == 0 {
		b, ok := br.r.NextByte()
		if !ok {
			return 0, false
		}
		br.cur = b
		br.nbits = 8
	}
	br.nbits--
	return (br.cur >> br.nbits) & 1, true
}

func (br *bitReader) bits(n uint) (uint64, bool) {
	var v uint64
	for i := uint(0); i < n; i++ {
		b, ok := br.bit()
		if !ok {
			return 0, false
		}
		v = v<<1 | uint64(b)
	}
	return v, true
}

// eliasGammaDecode decodes one Elias-gamma coded positive integer: N
// leading zero bits, a terminating 1 bit, then N more bits completing
// the value (which therefore ranges over [1, ...]).
func eliasGammaDecode(br *bitReader) (uint64, bool) {
	var n uint
	for {
		b, ok := br.bit()
		if !ok {
			return 0, false
		}
		if b == 1 {
			break
		}
		n++
		if n > 63 {
			return 0, false
		}
	}
	if n == 0 {
		return 1, true
	}
	rest, ok := br.bits(n)
	if !ok {
		return 0, false
	}
	return (uint64(1) << n) | rest, true
}

// eliasDeltaDecode decodes one Elias-delta coded positive integer: the
// bit-length of the value is itself Elias-gamma coded, then the
// remaining bits of the value (sans its implicit leading 1) follow.
func eliasDeltaDecode(br *bitReader) (uint64, bool) {
	length, ok := eliasGammaDecode(br)
	if !ok || length == 0 || length > 63 {
		return 0, false
	}
	if length == 1 {
		return 1, true
	}
	rest, ok := br.bits(length - 1)
	if !ok {
		return 0, false
	}
	return (uint64(1) << (length - 1)) | rest, true
}

// decodeEliasDeltaU32 decodes a single unsigned Elias-delta value,
// stored as (value+1) on the wire so that 0 is representable.
func decodeEliasDeltaU32(r *Reader, _ *Context) ([]Cell, bool) {
	br := &bitReader{r: r}
	v, ok := eliasDeltaDecode(br)
	if !ok {
		return nil, false
	}
	return []Cell{IntCell(int64(v - 1))}, true
}

// decodeEliasDeltaS32 zigzag-decodes an Elias-delta coded value to
// recover a signed integer.
func decodeEliasDeltaS32(r *Reader, _ *Context) ([]Cell, bool) {
	br := &bitReader{r: r}
	uv, ok := eliasDeltaDecode(br)
	if !ok {
		return nil, false
	}
	zz := uv - 1
	v := int64(zz>>1) ^ -int64(zz&1)
	return []Cell{IntCell(v)}, true
}
