package blackbox

import (
	"bufio"
	"bytes"
	"hash"
	"io"
	"io/ioutil"
	"os"

	"blainsmith.com/go/seahash"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sys/unix"

	"github.com/skybound/blackbox/frame"
	"github.com/skybound/blackbox/header"
)

// sessionStartLiteral is the fixed byte sequence every session's
// header block begins with. The scanner locates session boundaries by
// a plain byte search for this literal, not by matching the file's
// first line verbatim.
const sessionStartLiteral = "H Product:"

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	snappyMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
)

// fieldDefsCache holds one session's built field definitions, keyed by
// a seahash digest of that session's raw header bytes so a repeated
// Select of the same session rebuilds no field definitions. Select
// still re-parses the header block to compute the key.
type fieldDefsCache struct {
	defs map[frame.Kind][]frame.FieldDef
}

// Handle is an opened log file: its comment preamble and the byte
// offset of every concatenated session it contains. Opening a file
// does no frame decoding; that happens per-session in Select.
type Handle struct {
	data    []byte
	mmapped bool

	comments []string
	offsets  []int64

	cache map[uint64]fieldDefsCache
}

// Open parses the comment preamble and discovers session offsets in
// path. Non-seekable input (a pipe, a socket) is a hard error here,
// per the boundary contract: later operations never have to account
// for it.
func Open(path string, opts ...OpenOption) (*Handle, error) {
	o := makeOpenOpts(opts...)

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "blackbox: opening", path)
	}
	defer f.Close()

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.E(err, "blackbox: input is not seekable:", path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.E(err, "blackbox: input is not seekable:", path)
	}

	data, mmapped, err := loadAndDecompress(f, size, o.bufferSize)
	if err != nil {
		return nil, err
	}

	h := &Handle{data: data, mmapped: mmapped, cache: map[uint64]fieldDefsCache{}}
	h.comments, _ = parseComments(data)
	h.offsets = findSessionOffsets(data, []byte(sessionStartLiteral))
	if len(h.offsets) == 0 {
		return nil, errors.E("blackbox: no session found in", path)
	}
	log.Debug.Printf("blackbox: opened %s: %d session(s)", path, len(h.offsets))
	return h, nil
}

// Close releases the memory-mapped region backing the handle, if any.
// It is a no-op for a handle whose data was read into a plain buffer
// (a decompressed or non-mmap-able input).
func (h *Handle) Close() error {
	if h.mmapped && h.data != nil {
		err := unix.Munmap(h.data)
		h.data = nil
		return err
	}
	return nil
}

// SessionCount returns the number of sessions found at Open.
func (h *Handle) SessionCount() int {
	return len(h.offsets)
}

// Comments returns the top-of-file `#`-prefixed comment lines, sans
// the leading `#` and one space, in file order.
func (h *Handle) Comments() []string {
	return append([]string(nil), h.comments...)
}

// SessionOffsets returns the byte offset of each session's header
// block within the (decompressed) file content, for callers that want
// to seek around the raw data themselves. Not used by Select.
func (h *Handle) SessionOffsets() []int64 {
	return append([]int64(nil), h.offsets...)
}

// Select loads session index (1-based), parses its header block, and
// builds its field definitions, returning a SessionView ready to walk
// frames and events. An out-of-range index is a hard error.
func (h *Handle) Select(index int) (*SessionView, error) {
	if index < 1 || index > len(h.offsets) {
		return nil, errors.E("blackbox: session index", index, "out of range [1,", len(h.offsets), "]")
	}

	start := h.offsets[index-1]
	end := int64(len(h.data))
	if index < len(h.offsets) {
		end = h.offsets[index]
	}
	block := h.data[start:end]

	warn := func(msg string) { log.Error.Printf("blackbox: session %d: %s", index, msg) }

	headers, consumed := header.ParseBlock(block, warn)

	digest := seahashSum(block[:consumed])
	cached, hit := h.cache[digest]
	var fieldDefs map[frame.Kind][]frame.FieldDef
	if hit {
		fieldDefs = cached.defs
	} else {
		var err error
		fieldDefs, err = header.Build(headers, warn)
		if err != nil {
			return nil, errors.E(err, "blackbox: building field definitions for session", index)
		}
		h.cache[digest] = fieldDefsCache{defs: fieldDefs}
	}

	if len(fieldDefs[frame.Intra]) == 0 {
		return nil, errors.E("blackbox: session", index, "defines no Intra fields")
	}

	publicHeaders := header.PublicHeaders(headers)
	ctx := frame.NewContext(publicHeaders, fieldDefs)
	strm := newSessionStream(block[consumed:], ctx, warn)

	return &SessionView{
		index:      index,
		headers:    publicHeaders,
		fieldNames: assembleFieldNames(fieldDefs),
		ctx:        ctx,
		stream:     strm,
	}, nil
}

func seahashSum(b []byte) uint64 {
	var hasher hash.Hash64 = seahash.New()
	hasher.Write(b)
	return hasher.Sum64()
}

// parseComments captures the `#`-prefixed lines at the start of data,
// stopping (without consuming) at the first line that isn't one.
func parseComments(data []byte) ([]string, int) {
	var comments []string
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
		if len(line) == 0 || line[0] != '#' {
			break
		}
		text := string(bytes.TrimRight(line, "\r"))
		text = text[1:]
		if len(text) > 0 && text[0] == ' ' {
			text = text[1:]
		}
		comments = append(comments, text)
		pos = next
	}
	return comments, pos
}

// findSessionOffsets returns the start offset of every occurrence of
// literal in data, in ascending order.
func findSessionOffsets(data, literal []byte) []int64 {
	var offsets []int64
	pos := 0
	for {
		idx := bytes.Index(data[pos:], literal)
		if idx < 0 {
			break
		}
		offsets = append(offsets, int64(pos+idx))
		pos += idx + 1
	}
	return offsets
}

// assembleFieldNames concatenates Intra field names, then Slow names
// not already listed, then Gps names not already listed and excluding
// the Gps "time" column.
func assembleFieldNames(fieldDefs map[frame.Kind][]frame.FieldDef) []string {
	seen := map[string]bool{}
	var names []string
	add := func(n string) {
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		names = append(names, n)
	}
	for _, fd := range fieldDefs[frame.Intra] {
		add(fd.Name)
	}
	for _, fd := range fieldDefs[frame.Slow] {
		add(fd.Name)
	}
	for _, fd := range fieldDefs[frame.Gps] {
		if fd.Name == "time" {
			continue
		}
		add(fd.Name)
	}
	return names
}

// loadAndDecompress maps or reads f's content and transparently
// inflates it if it's gzip- or snappy-compressed. A compressed input
// is never memory-mapped as raw frame bytes: it's inflated once into
// an owned buffer.
func loadAndDecompress(f *os.File, size int64, bufSize int) ([]byte, bool, error) {
	raw, mmapped, err := mmapOrRead(f, size, bufSize)
	if err != nil {
		return nil, false, err
	}

	switch {
	case bytes.HasPrefix(raw, gzipMagic):
		decoded, derr := inflateGzip(raw)
		if mmapped {
			_ = unix.Munmap(raw)
		}
		if derr != nil {
			return nil, false, errors.E(derr, "blackbox: gzip decompression failed")
		}
		return decoded, false, nil
	case bytes.HasPrefix(raw, snappyMagic):
		decoded, derr := inflateSnappy(raw)
		if mmapped {
			_ = unix.Munmap(raw)
		}
		if derr != nil {
			return nil, false, errors.E(derr, "blackbox: snappy decompression failed")
		}
		return decoded, false, nil
	default:
		return raw, mmapped, nil
	}
}

// mmapOrRead memory-maps f read-only when possible, falling back to a
// buffered read into an owned slice (e.g. f is a pipe that slipped
// past the seekability check some other way, or the filesystem
// refuses mmap).
func mmapOrRead(f *os.File, size int64, bufSize int) ([]byte, bool, error) {
	if size > 0 {
		if data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED); err == nil {
			return data, true, nil
		}
	}
	br := bufio.NewReaderSize(f, bufSize)
	data, err := ioutil.ReadAll(br)
	if err != nil {
		return nil, false, errors.E(err, "blackbox: reading input")
	}
	return data, false, nil
}

func inflateGzip(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return ioutil.ReadAll(zr)
}

func inflateSnappy(raw []byte) ([]byte, error) {
	return ioutil.ReadAll(snappy.NewReader(bytes.NewReader(raw)))
}
