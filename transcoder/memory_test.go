package transcoder

import (
	"bytes"
	stderrors "errors"
	"sync"
	"testing"

	shapecodec "github.com/wippyai/shape-codec"
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
)

func TestAllocationList(t *testing.T) {
	budget := shapecodec.NewBudget(100)
	al := NewAllocationList()

	if err := al.Reserve(budget, 40); err != nil {
		t.Fatal(err)
	}
	if err := al.Reserve(budget, 0); err != nil {
		t.Fatal(err)
	}
	if err := al.Reserve(budget, 50); err != nil {
		t.Fatal(err)
	}
	if al.Count() != 2 || al.Total() != 90 {
		t.Errorf("Count/Total = %d/%d, want 2/90", al.Count(), al.Total())
	}
	if err := al.Reserve(budget, 20); !stderrors.Is(err, errors.ErrAllocation) {
		t.Errorf("over budget: err = %v", err)
	}
	if al.Count() != 2 {
		t.Errorf("failed reservation was recorded")
	}

	al.FreeAndRelease(budget)
	if budget.Used() != 0 {
		t.Errorf("Used = %d after FreeAndRelease", budget.Used())
	}
}

func TestBudgetExhaustionFreesEverything(t *testing.T) {
	s := shape.List(shape.Slice(shape.U32()))
	in := []any{
		[]any{uint32(1), uint32(2)},
		[]any{uint32(3), uint32(4), uint32(5), uint32(6), uint32(7), uint32(8)},
	}
	data, err := EncodeToBuffer(s, in)
	if err != nil {
		t.Fatal(err)
	}

	// outer list: 2 x 16, first slice: 2 x 4, second slice: 6 x 4
	budget := shapecodec.NewBudget(32 + 8 + 10)
	_, err = DecodeFromBuffer(data, s, budget)
	if !stderrors.Is(err, errors.ErrAllocation) {
		t.Fatalf("err = %v, want allocation failure", err)
	}
	if budget.Used() != 0 {
		t.Errorf("failed decode left %d bytes reserved", budget.Used())
	}

	budget = shapecodec.NewBudget(32 + 8 + 24)
	out, err := DecodeFromBuffer(data, s, budget)
	if err != nil {
		t.Fatal(err)
	}
	if budget.Used() != 64 {
		t.Errorf("Used = %d, want 64", budget.Used())
	}
	Release(s, out, budget)
	if budget.Used() != 0 {
		t.Errorf("Release left %d bytes reserved", budget.Used())
	}
}

func TestManagedListBindsAllocator(t *testing.T) {
	s := shape.ManagedList(shape.U8())
	data, _ := EncodeToBuffer(s, []byte{1, 2, 3, 4})

	budget := shapecodec.NewBudget(16)
	out, err := DecodeFromBuffer(data, s, budget)
	if err != nil {
		t.Fatal(err)
	}
	l := out.(*value.List)
	if l.Allocator != shapecodec.Allocator(budget) {
		t.Fatal("managed list must carry the decoding allocator")
	}
	if budget.Used() != 4 {
		t.Errorf("Used = %d, want 4", budget.Used())
	}
	l.Release()
	if budget.Used() != 0 {
		t.Errorf("List.Release left %d bytes reserved", budget.Used())
	}
}

func TestMapsBindAllocator(t *testing.T) {
	s := shape.Struct("pair",
		shape.F("h", shape.HashMap(shape.U8(), shape.String())),
		shape.F("o", shape.OrderedMap(shape.U16(), shape.U8())),
	)
	in := map[string]any{
		"h": hashMapOf(uint8(1), "one", uint8(2), "two"),
		"o": orderedMapOf(uint16(9), uint8(0)),
	}
	data, err := EncodeToBuffer(s, in)
	if err != nil {
		t.Fatal(err)
	}
	budget := shapecodec.NewBudget(1 << 10)
	out, err := DecodeFromBuffer(data, s, budget)
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	if m["h"].(*value.HashMap).Allocator != shapecodec.Allocator(budget) {
		t.Error("hashed map not bound to allocator")
	}
	if m["o"].(*value.OrderedMap).Allocator != shapecodec.Allocator(budget) {
		t.Error("ordered map not bound to allocator")
	}
	// h: 2 x (1 + 16) + "one" + "two"; o: 1 x (2 + 1)
	if budget.Used() != 34+6+3 {
		t.Errorf("Used = %d, want 43", budget.Used())
	}
	Release(s, out, budget)
	if budget.Used() != 0 {
		t.Errorf("Release left %d bytes reserved", budget.Used())
	}
}

// tally is an unbounded allocator that counts outstanding bytes without
// clamping, so a double free shows up as a negative balance.
type tally struct {
	mu          sync.Mutex
	outstanding int64
}

func (a *tally) Alloc(size uint64) error {
	a.mu.Lock()
	a.outstanding += int64(size)
	a.mu.Unlock()
	return nil
}

func (a *tally) Free(size uint64) {
	a.mu.Lock()
	a.outstanding -= int64(size)
	a.mu.Unlock()
}

func TestDuplicateKeyStorageReleased(t *testing.T) {
	entries := cat(
		le64(2),
		[]byte{1}, le64(3), []byte("abc"),
		[]byte{1}, le64(3), []byte("xyz"),
	)
	tests := []struct {
		shape *shape.Shape
		name  string
		data  []byte
	}{
		{shape.OrderedMap(shape.U8(), shape.String()), "ordered", entries},
		{shape.HashMap(shape.U8(), shape.String()), "hashed", cat(entries, []byte{0})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := shapecodec.NewBudget(1 << 10)
			out, err := DecodeFromBuffer(tt.data, tt.shape, budget)
			if err != nil {
				t.Fatal(err)
			}
			// 2 x (1 + 16) for the entries plus the surviving "xyz"
			if budget.Used() != 34+3 {
				t.Errorf("Used = %d after decode, want 37", budget.Used())
			}
			Release(tt.shape, out, budget)
			if budget.Used() != 0 {
				t.Errorf("Release left %d bytes reserved", budget.Used())
			}
		})
	}
}

func TestDuplicateKeyThenFailureFreesOnce(t *testing.T) {
	s := shape.Struct("rec",
		shape.F("m", shape.OrderedMap(shape.String(), shape.String())),
		shape.F("tail", shape.U32()),
	)
	// the map decodes completely, then the tail field runs out of input
	data := cat(
		le64(2),
		le64(1), []byte("k"), le64(2), []byte("v1"),
		le64(1), []byte("k"), le64(2), []byte("v2"),
	)
	var alloc tally
	_, err := DecodeFromBuffer(data, s, &alloc)
	requireKind(t, err, errors.PhaseDecode, errors.KindEndOfInput)
	if alloc.outstanding != 0 {
		t.Errorf("outstanding = %d after failed decode, want 0", alloc.outstanding)
	}
}

func TestContextStateReleased(t *testing.T) {
	s := shape.OrderedMap(shape.U8(), shape.U8()).WithContext(shape.String(), func(any) (value.Context, error) {
		return nil, nil
	})
	data := cat(le64(4), []byte("seed"), le64(1), []byte{1, 2})

	budget := shapecodec.NewBudget(1 << 10)
	out, err := DecodeFromBuffer(data, s, budget)
	if err != nil {
		t.Fatal(err)
	}
	om := out.(*value.OrderedMap)
	if om.State != "seed" {
		t.Errorf("State = %v, want seed", om.State)
	}
	// "seed" plus 1 x (1 + 1)
	if budget.Used() != 6 {
		t.Errorf("Used = %d after decode, want 6", budget.Used())
	}

	again, err := EncodeToBuffer(s, om)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, data) {
		t.Errorf("re-encoding = % x, want % x", again, data)
	}

	Release(s, out, budget)
	if budget.Used() != 0 {
		t.Errorf("Release left %d bytes reserved", budget.Used())
	}
}
