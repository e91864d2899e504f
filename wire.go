package shapecodec

import (
	"io"
	"sync/atomic"

	"github.com/wippyai/shape-codec/errors"
)

// Sink accepts ordered byte writes. A failed write aborts the encode.
type Sink = io.Writer

// Source yields ordered byte reads. A zero-length read with io.EOF marks
// the end of data; a short read followed by io.EOF is reported as
// io.ErrUnexpectedEOF by the decoder.
type Source = io.Reader

// Allocator accounts for heap storage created while decoding dynamic
// sequences, growable lists and associative containers.
type Allocator interface {
	Alloc(size uint64) error
	Free(size uint64)
}

// Heap is the unbounded allocator. It never fails.
var Heap Allocator = heap{}

type heap struct{}

func (heap) Alloc(uint64) error { return nil }
func (heap) Free(uint64)        {}

// Budget is an Allocator that fails once more than Limit bytes are
// outstanding. It is safe for concurrent use.
type Budget struct {
	limit uint64
	used  atomic.Uint64
}

// NewBudget returns a Budget capped at limit bytes.
func NewBudget(limit uint64) *Budget {
	return &Budget{limit: limit}
}

func (b *Budget) Alloc(size uint64) error {
	for {
		used := b.used.Load()
		if size > b.limit || used > b.limit-size {
			return errors.AllocationFailed(errors.PhaseDecode, size, b.limit-used)
		}
		if b.used.CompareAndSwap(used, used+size) {
			return nil
		}
	}
}

func (b *Budget) Free(size uint64) {
	for {
		used := b.used.Load()
		next := uint64(0)
		if size < used {
			next = used - size
		}
		if b.used.CompareAndSwap(used, next) {
			return
		}
	}
}

// Used returns the number of bytes currently reserved.
func (b *Budget) Used() uint64 {
	return b.used.Load()
}

// Limit returns the configured cap.
func (b *Budget) Limit() uint64 {
	return b.limit
}
