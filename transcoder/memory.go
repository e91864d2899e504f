package transcoder

import (
	"sync"

	shapecodec "github.com/wippyai/shape-codec"
)

// Allocator is the decode-side storage accountant.
type Allocator = shapecodec.Allocator

// Heap is the unbounded allocator used when none is supplied.
var Heap = shapecodec.Heap

// Allocation is one reservation made while decoding.
type Allocation struct {
	Size uint64
}

// AllocationList records the reservations of a single decode call so a
// failed decode can return all of them.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	// Only pool small lists to prevent memory bloat
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator Allocator) {
	al.Free(allocator)
	al.Release()
}

// Reserve asks allocator for size and records the reservation.
func (al *AllocationList) Reserve(allocator Allocator, size uint64) error {
	if size == 0 {
		return nil
	}
	if err := allocator.Alloc(size); err != nil {
		return err
	}
	al.allocations = append(al.allocations, Allocation{Size: size})
	return nil
}

func (al *AllocationList) Free(allocator Allocator) {
	if allocator == nil {
		return
	}
	for _, a := range al.allocations {
		allocator.Free(a.Size)
	}
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}

// Total is the sum of all recorded reservations.
func (al *AllocationList) Total() uint64 {
	var n uint64
	for _, a := range al.allocations {
		n += a.Size
	}
	return n
}
