package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skybound/blackbox/frame"
)

func encodeUnsignedVarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func encodeSignedVarint(v int64) []byte {
	zz := uint64((v << 1) ^ (v >> 63))
	return encodeUnsignedVarint(zz)
}

func TestUnsignedVarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40} {
		r := frame.NewReader(encodeUnsignedVarint(v))
		got, ok := frame.ReadUnsignedVarint(r)
		require.True(t, ok)
		assert.Equal(t, v, got)
		assert.True(t, r.EOF())
	}
}

func TestSignedVarintRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -64, 1000, -1000, 1 << 20, -(1 << 20)} {
		r := frame.NewReader(encodeSignedVarint(v))
		got, ok := frame.ReadSignedVarint(r)
		require.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestUnsignedVarintUnderflow(t *testing.T) {
	r := frame.NewReader([]byte{0x80, 0x80})
	_, ok := frame.ReadUnsignedVarint(r)
	assert.False(t, ok)
}

func TestDecodeNull(t *testing.T) {
	r := frame.NewReader(nil)
	cells, ok := frame.Decoders[frame.EncodingNull](r, nil)
	require.True(t, ok)
	require.Len(t, cells, 1)
	assert.Equal(t, int64(0), cells[0].I)
	assert.Equal(t, 0, r.Tell())
}

func TestDecodeTag8_8SVB(t *testing.T) {
	// bit0 and bit3 set: two nonzero fields, rest zero.
	buf := append([]byte{0b0000_1001}, encodeSignedVarint(5)...)
	buf = append(buf, encodeSignedVarint(-7)...)
	r := frame.NewReader(buf)
	cells, ok := frame.Decoders[frame.EncodingTag8_8SVB](r, nil)
	require.True(t, ok)
	require.Len(t, cells, 8)
	assert.Equal(t, int64(5), cells[0].I)
	assert.Equal(t, int64(0), cells[1].I)
	assert.Equal(t, int64(0), cells[2].I)
	assert.Equal(t, int64(-7), cells[3].I)
	assert.True(t, r.EOF())
}

func TestDecodeTag2_3S32Widths(t *testing.T) {
	// field0: width 1 (1 byte, value -1), field1: width 0 (zero), field2: width 2 (2 bytes, 300)
	tag := byte(1) | (0 << 2) | (2 << 4)
	buf := []byte{tag, 0xFF, 0x2C, 0x01}
	r := frame.NewReader(buf)
	cells, ok := frame.Decoders[frame.EncodingTag2_3S32](r, nil)
	require.True(t, ok)
	require.Len(t, cells, 3)
	assert.Equal(t, int64(-1), cells[0].I)
	assert.Equal(t, int64(0), cells[1].I)
	assert.Equal(t, int64(300), cells[2].I)
}

func TestDecodeFloat32BigEndian(t *testing.T) {
	// 1.0f big-endian == 0x3F800000
	r := frame.NewReader([]byte{0x3F, 0x80, 0x00, 0x00})
	cells, ok := frame.Decoders[frame.EncodingFloat](r, nil)
	require.True(t, ok)
	require.Len(t, cells, 1)
	assert.True(t, cells[0].Float)
	assert.Equal(t, 1.0, cells[0].F)
}

func TestDecodeNeg14Bit(t *testing.T) {
	// low 14 bits = 5 -> negated -> -5
	r := frame.NewReader([]byte{0x00, 0x05})
	cells, ok := frame.Decoders[frame.EncodingNeg14Bit](r, nil)
	require.True(t, ok)
	assert.Equal(t, int64(-5), cells[0].I)
}

// bitWriter is a tiny MSB-first bit packer used only to build fixtures
// for the Elias-coded decoders under test.
type bitWriter struct {
	bytes []byte
	cur   byte
	nbits uint
}

func (w *bitWriter) writeBit(b uint64) {
	w.cur = w.cur<<1 | byte(b&1)
	w.nbits++
	if w.nbits == 8 {
		w.bytes = append(w.bytes, w.cur)
		w.cur, w.nbits = 0, 0
	}
}

func (w *bitWriter) writeBits(v uint64, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		w.writeBit((v >> uint(i)) & 1)
	}
}

func (w *bitWriter) bytesPadded() []byte {
	if w.nbits > 0 {
		w.bytes = append(w.bytes, w.cur<<(8-w.nbits))
	}
	return w.bytes
}

func bitLen(v uint64) uint {
	var n uint
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

func writeEliasGamma(w *bitWriter, v uint64) {
	n := bitLen(v) - 1
	for i := uint(0); i < n; i++ {
		w.writeBit(0)
	}
	w.writeBits(v, n+1)
}

func writeEliasDelta(w *bitWriter, v uint64) {
	length := bitLen(v)
	writeEliasGamma(w, uint64(length))
	if length > 1 {
		w.writeBits(v, length-1)
	}
}

func TestEliasDeltaU32RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 2, 5, 100, 12345, 1 << 20} {
		w := &bitWriter{}
		writeEliasDelta(w, v+1)
		r := frame.NewReader(w.bytesPadded())
		cells, ok := frame.Decoders[frame.EncodingEliasDeltaU32](r, nil)
		require.True(t, ok)
		require.Len(t, cells, 1)
		assert.Equal(t, int64(v), cells[0].I)
	}
}

func TestEliasDeltaS32RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 5, -5, 12345, -12345} {
		zz := uint64((v << 1) ^ (v >> 63))
		w := &bitWriter{}
		writeEliasDelta(w, zz+1)
		r := frame.NewReader(w.bytesPadded())
		cells, ok := frame.Decoders[frame.EncodingEliasDeltaS32](r, nil)
		require.True(t, ok)
		require.Len(t, cells, 1)
		assert.Equal(t, v, cells[0].I)
	}
}
