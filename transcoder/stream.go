package transcoder

import (
	"io"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

var (
	defaultEncoder = NewEncoder(WithCompiler(newValidator()))
	defaultDecoder = NewDecoder(WithCompiler(newValidator()))
)

// bufferSource is the Source over a complete in-memory buffer. The decoder
// recognizes it to alias borrowed byte slices and to bound lengths by the
// bytes that remain.
type bufferSource struct {
	data []byte
	off  int
}

func (b *bufferSource) Read(p []byte) (int, error) {
	if b.off >= len(b.data) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[b.off:])
	b.off += n
	return n, nil
}

// Len is the number of unread bytes.
func (b *bufferSource) Len() int {
	return len(b.data) - b.off
}

// Next returns the next n bytes without copying. n must not exceed Len.
func (b *bufferSource) Next(n int) []byte {
	p := b.data[b.off : b.off+n : b.off+n]
	b.off += n
	return p
}

// Encode writes the encoding of v to w.
func Encode(w io.Writer, s *shape.Shape, v any) error {
	return defaultEncoder.Encode(w, s, v)
}

// Decode reads one value of shape s from r.
func Decode(r io.Reader, s *shape.Shape, alloc Allocator) (any, error) {
	return defaultDecoder.Decode(r, s, alloc)
}

// EncodeToBuffer returns a new buffer holding the encoding of v.
func EncodeToBuffer(s *shape.Shape, v any) ([]byte, error) {
	return defaultEncoder.EncodeToBuffer(s, v)
}

// DecodeFromBuffer decodes one value of shape s from the front of data.
// Trailing bytes are ignored.
func DecodeFromBuffer(data []byte, s *shape.Shape, alloc Allocator) (any, error) {
	return defaultDecoder.DecodeFromBuffer(data, s, alloc)
}

// EncodedLength runs the encoder against a counting sink. The result always
// equals len(EncodeToBuffer(s, v)).
func EncodedLength(s *shape.Shape, v any) (uint64, error) {
	return defaultEncoder.EncodedLength(s, v)
}

// Fingerprint is the BLAKE3-256 digest of the encoding of v. It is stable
// for every shape except those containing hashed containers, whose entry
// order is unspecified.
func Fingerprint(s *shape.Shape, v any) ([32]byte, error) {
	var sum [32]byte
	h := blake3.New()
	if err := defaultEncoder.Encode(h, s, v); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

func (e *Encoder) EncodeToBuffer(s *shape.Shape, v any) ([]byte, error) {
	var buf []byte
	if err := e.Encode(sliceWriter{buf: &buf}, s, v); err != nil {
		return nil, err
	}
	if buf == nil {
		buf = []byte{}
	}
	return buf, nil
}

func (e *Encoder) EncodedLength(s *shape.Shape, v any) (uint64, error) {
	var w countingWriter
	if err := e.Encode(&w, s, v); err != nil {
		return 0, err
	}
	return w.n, nil
}

func (d *Decoder) DecodeFromBuffer(data []byte, s *shape.Shape, alloc Allocator) (any, error) {
	src := &bufferSource{data: data}
	v, err := d.Decode(src, s, alloc)
	if err != nil {
		return nil, err
	}
	if n := src.Len(); n > 0 {
		Logger().Debug("ignoring trailing bytes",
			zap.Int("trailing", n),
			zap.Int("consumed", src.off),
			zap.Stringer("shape", s))
	}
	return v, nil
}

// Codec binds one validated shape to an encoder and decoder pair.
type Codec struct {
	shape *shape.Shape
	enc   *Encoder
	dec   *Decoder
}

// NewCodec validates s once; the returned Codec is safe for concurrent use.
func NewCodec(s *shape.Shape, opts ...Option) (*Codec, error) {
	cfg := newConfig(opts)
	if err := cfg.compiler.Check(s); err != nil {
		return nil, err
	}
	return &Codec{
		shape: s,
		enc:   &Encoder{compiler: cfg.compiler},
		dec:   &Decoder{compiler: cfg.compiler, maxLength: cfg.maxLength},
	}, nil
}

func (c *Codec) Shape() *shape.Shape {
	return c.shape
}

func (c *Codec) Marshal(v any) ([]byte, error) {
	return c.enc.EncodeToBuffer(c.shape, v)
}

func (c *Codec) Unmarshal(data []byte, alloc Allocator) (any, error) {
	return c.dec.DecodeFromBuffer(data, c.shape, alloc)
}

func (c *Codec) EncodedLength(v any) (uint64, error) {
	return c.enc.EncodedLength(c.shape, v)
}

// Write encodes v to w.
func (c *Codec) Write(w io.Writer, v any) error {
	return c.enc.Encode(w, c.shape, v)
}

// Read decodes one value from r.
func (c *Codec) Read(r io.Reader, alloc Allocator) (any, error) {
	return c.dec.Decode(r, c.shape, alloc)
}

// UnmarshalAs decodes data and asserts the result to T, for example
// map[string]any for a struct shape or uint32 for a u32 shape.
func UnmarshalAs[T any](c *Codec, data []byte, alloc Allocator) (T, error) {
	var zero T
	v, err := c.Unmarshal(data, alloc)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseDecode, nil, typeName(v), c.shape.String())
	}
	return t, nil
}
