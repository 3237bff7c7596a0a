package blackbox

// defaultBufferSize is the default session I/O block size: a
// performance knob, not semantically observable in any decoded output.
const defaultBufferSize = 2 * 1024 * 1024

type openOpts struct {
	bufferSize int
}

// OpenOption is an optional argument to Open, mirroring the
// encoding/fasta functional-option pattern: small, composable, and
// safe to omit.
type OpenOption func(*openOpts)

// OptBufferSize sets the chunk size used to read a file that can't be
// memory-mapped (an empty file, or a filesystem that refuses mmap).
// A gzip/snappy-compressed capture is memory-mapped like any other
// file before it is inflated. It has no effect on decoded output.
func OptBufferSize(n int) OpenOption {
	return func(o *openOpts) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

func makeOpenOpts(userOpts ...OpenOption) openOpts {
	o := openOpts{bufferSize: defaultBufferSize}
	for _, uo := range userOpts {
		uo(&o)
	}
	return o
}
