package wasmmem

import (
	stderrors "errors"
	"io"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/shape-codec/errors"
)

// ErrOutOfBounds is the cause of every failed access outside a region or
// outside guest memory.
var ErrOutOfBounds = stderrors.New("wasmmem: access out of bounds")

func checkRegion(mem api.Memory, offset, size uint32) error {
	end := uint64(offset) + uint64(size)
	if end > uint64(mem.Size()) {
		return errors.New(errors.PhaseEncode, errors.KindIO).
			Cause(ErrOutOfBounds).
			Detail("region [%d, %d) exceeds memory size %d", offset, end, mem.Size()).
			Build()
	}
	return nil
}

// Writer writes sequentially into guest memory starting at an offset. It
// never writes past the region it was created with.
type Writer struct {
	mem   api.Memory
	start uint32
	off   uint32
	end   uint32
}

// NewWriter returns a Writer over [offset, offset+size).
func NewWriter(mem api.Memory, offset, size uint32) (*Writer, error) {
	if err := checkRegion(mem, offset, size); err != nil {
		return nil, err
	}
	return &Writer{mem: mem, start: offset, off: offset, end: offset + size}, nil
}

// Write copies p in full or not at all.
func (w *Writer) Write(p []byte) (int, error) {
	if uint64(len(p)) > uint64(w.end-w.off) {
		return 0, ErrOutOfBounds
	}
	if !w.mem.Write(w.off, p) {
		return 0, ErrOutOfBounds
	}
	w.off += uint32(len(p))
	return len(p), nil
}

// Written is the number of bytes written so far.
func (w *Writer) Written() uint32 {
	return w.off - w.start
}

// Reader reads sequentially from [offset, offset+length) of guest memory.
// Bytes are copied out, so decoded values never alias guest memory.
type Reader struct {
	mem api.Memory
	off uint32
	end uint32
}

func NewReader(mem api.Memory, offset, length uint32) (*Reader, error) {
	if err := checkRegion(mem, offset, length); err != nil {
		return nil, err
	}
	return &Reader{mem: mem, off: offset, end: offset + length}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.off == r.end {
		return 0, io.EOF
	}
	n := uint32(len(p))
	if rem := r.end - r.off; n > rem {
		n = rem
	}
	data, ok := r.mem.Read(r.off, n)
	if !ok {
		return 0, ErrOutOfBounds
	}
	copy(p, data)
	r.off += n
	return int(n), nil
}

// Remaining is the number of unread bytes in the region.
func (r *Reader) Remaining() uint32 {
	return r.end - r.off
}
