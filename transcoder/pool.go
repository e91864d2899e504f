package transcoder

import "sync"

const (
	// Pool limits to prevent memory bloat
	poolMaxCap  = 64 << 10 // max bytes kept per pooled buffer
	poolInitCap = 64
)

// byte buffer pool for key encodings hashed by the default context
var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, poolInitCap)
		return &buf
	},
}

func getBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

func putBuf(buf *[]byte) {
	if buf == nil || cap(*buf) > poolMaxCap {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	bufPool.Put(buf)
}

// sliceWriter appends writes to a byte slice.
type sliceWriter struct {
	buf *[]byte
}

func (w sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

// countingWriter discards output and counts bytes.
type countingWriter struct {
	n uint64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += uint64(len(p))
	return len(p), nil
}
