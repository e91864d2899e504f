package wasmmem

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	shapecodec "github.com/wippyai/shape-codec"
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/transcoder"
	"go.uber.org/zap"
)

const (
	CabiRealloc = "cabi_realloc"
	CabiFree    = "cabi_free"

	// Names used by older toolchains.
	legacyRealloc = "canonical_abi_realloc"
	simpleAlloc   = "alloc"
	simpleFree    = "free"
)

// EncodeAt encodes v into guest memory at offset, writing at most limit
// bytes, and returns the number of bytes written. Nothing past limit is
// touched; a value that does not fit fails with ErrOutOfBounds as cause.
func EncodeAt(mem api.Memory, offset, limit uint32, s *shape.Shape, v any) (uint32, error) {
	w, err := NewWriter(mem, offset, limit)
	if err != nil {
		return 0, err
	}
	if err := transcoder.Encode(w, s, v); err != nil {
		return w.Written(), err
	}
	return w.Written(), nil
}

// DecodeAt decodes one value from [offset, offset+length) of guest memory.
func DecodeAt(mem api.Memory, offset, length uint32, s *shape.Shape, alloc shapecodec.Allocator) (any, error) {
	r, err := NewReader(mem, offset, length)
	if err != nil {
		return nil, err
	}
	return transcoder.Decode(r, s, alloc)
}

// Guest moves encoded values in and out of one module instance, allocating
// through the guest's own allocator export. Store, Load and Free are safe
// for concurrent use: calls into the guest's allocator exports hold an
// internal mutex, while encoding and decoding run unlocked.
type Guest struct {
	mem     api.Memory
	allocFn api.Function
	freeFn  api.Function
	stack   []uint64
	mu      sync.Mutex
	simple  bool
	encoder *transcoder.Encoder
	decoder *transcoder.Decoder
}

// NewGuest binds the exported memory and allocator of mod. cabi_realloc is
// preferred; the legacy allocator names are tried after it.
func NewGuest(mod api.Module, opts ...transcoder.Option) (*Guest, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseEncode, "memory", mod.Name())
	}
	allocFn := mod.ExportedFunction(CabiRealloc)
	if allocFn == nil {
		allocFn = mod.ExportedFunction(legacyRealloc)
	}
	if allocFn == nil {
		allocFn = mod.ExportedFunction(simpleAlloc)
	}
	if allocFn == nil {
		return nil, errors.NotFound(errors.PhaseEncode, "allocator export", CabiRealloc)
	}
	freeFn := mod.ExportedFunction(CabiFree)
	if freeFn == nil {
		freeFn = mod.ExportedFunction(simpleFree)
	}
	return Bind(mem, allocFn, freeFn, opts...), nil
}

// Bind builds a Guest from explicit parts. allocFn takes either the
// four realloc parameters (old pointer, old size, align, new size) or just
// a size; freeFn may be nil.
func Bind(mem api.Memory, allocFn, freeFn api.Function, opts ...transcoder.Option) *Guest {
	return &Guest{
		mem:     mem,
		allocFn: allocFn,
		freeFn:  freeFn,
		stack:   make([]uint64, 4),
		simple:  len(allocFn.Definition().ParamTypes()) < 4,
		encoder: transcoder.NewEncoder(opts...),
		decoder: transcoder.NewDecoder(opts...),
	}
}

// Memory returns the bound guest memory.
func (g *Guest) Memory() api.Memory {
	return g.mem
}

// Store encodes v, allocates a guest block of exactly the encoded length
// and copies the encoding into it. An empty encoding allocates nothing and
// returns a zero pointer.
func (g *Guest) Store(ctx context.Context, s *shape.Shape, v any) (ptr, length uint32, err error) {
	data, err := g.encoder.EncodeToBuffer(s, v)
	if err != nil {
		return 0, 0, err
	}
	if len(data) == 0 {
		return 0, 0, nil
	}
	if uint64(len(data)) > uint64(^uint32(0)) {
		return 0, 0, errors.AllocationFailed(errors.PhaseEncode, uint64(len(data)), uint64(g.mem.Size()))
	}
	size := uint32(len(data))
	ptr, err = g.alloc(ctx, size)
	if err != nil {
		return 0, 0, errors.Wrap(errors.PhaseEncode, errors.KindAllocation, err, "guest allocation failed")
	}
	if !g.mem.Write(ptr, data) {
		g.Free(ctx, ptr, size)
		return 0, 0, errors.IO(errors.PhaseEncode, nil, ErrOutOfBounds)
	}
	return ptr, size, nil
}

// Load decodes one value from a block previously produced by Store or by
// the guest itself.
func (g *Guest) Load(ptr, length uint32, s *shape.Shape, alloc shapecodec.Allocator) (any, error) {
	r, err := NewReader(g.mem, ptr, length)
	if err != nil {
		return nil, err
	}
	v, err := g.decoder.Decode(r, s, alloc)
	if err != nil {
		return nil, err
	}
	if rem := r.Remaining(); rem > 0 {
		Logger().Debug("guest block has trailing bytes",
			zap.Uint32("ptr", ptr),
			zap.Uint32("remaining", rem))
	}
	return v, nil
}

func (g *Guest) alloc(ctx context.Context, size uint32) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.simple {
		g.stack[0] = uint64(size)
		if err := g.allocFn.CallWithStack(ctx, g.stack[:1]); err != nil {
			return 0, err
		}
	} else {
		g.stack[0] = 0
		g.stack[1] = 0
		g.stack[2] = 1
		g.stack[3] = uint64(size)
		if err := g.allocFn.CallWithStack(ctx, g.stack[:4]); err != nil {
			return 0, err
		}
	}
	ptr := uint32(g.stack[0])
	if uint64(ptr)+uint64(size) > uint64(g.mem.Size()) {
		return 0, ErrOutOfBounds
	}
	return ptr, nil
}

// Free returns a block to the guest. Without a free export it is a no-op;
// failures are logged, never returned.
func (g *Guest) Free(ctx context.Context, ptr, size uint32) {
	if g.freeFn == nil || ptr == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stack[0] = uint64(ptr)
	g.stack[1] = uint64(size)
	g.stack[2] = 1
	if err := g.freeFn.CallWithStack(ctx, g.stack[:3]); err != nil {
		Logger().Warn("guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}
