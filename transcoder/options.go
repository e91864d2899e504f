package transcoder

import "github.com/wippyai/shape-codec/transcoder/internal/wire"

// MaxListLength caps the element count accepted for any decoded sequence,
// list or container unless overridden with WithMaxLength.
const MaxListLength = wire.MaxListLength

// Option configures an Encoder, Decoder or Codec.
type Option func(*config)

type config struct {
	compiler  *Compiler
	maxLength uint64
}

func newConfig(opts []Option) config {
	cfg := config{maxLength: MaxListLength}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.compiler == nil {
		cfg.compiler = NewCompiler()
	}
	return cfg
}

// WithMaxLength sets the largest length prefix or entry count a decode
// accepts. Larger values fail before any allocation.
func WithMaxLength(n uint64) Option {
	return func(c *config) {
		c.maxLength = n
	}
}

// WithCompiler shares a Compiler, and its caches, between codecs.
func WithCompiler(comp *Compiler) Option {
	return func(c *config) {
		c.compiler = comp
	}
}
