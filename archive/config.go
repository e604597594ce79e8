package archive

import (
	"go.uber.org/zap"

	"github.com/wippyai/yaml-archive/shape"
)

// BinaryEncoding selects the text transform for byte buffers.
type BinaryEncoding uint8

const (
	BinaryBase64 BinaryEncoding = iota // tag !!binary
	BinaryHex                          // tag !hex
)

func (b BinaryEncoding) String() string {
	if b == BinaryHex {
		return "hex"
	}
	return "base64"
}

// Config controls one archive session. The zero value is a valid config.
type Config struct {
	// Registry resolves type names. DefaultRegistry when nil.
	Registry *Registry
	// Shapes decides which types are sequences. shape.Default when nil.
	Shapes *shape.Classifier
	// Logger overrides the package logger for this session.
	Logger *zap.Logger

	// NoHeader writes a bare sequence without the archive header.
	NoHeader bool
	// NoTracking writes pointers inline instead of anchoring them.
	// Shared pointers are duplicated and cycles fail.
	NoTracking bool
	// NoTags omits type tags and versions of records that are not
	// reached through an interface.
	NoTags bool
	// NoTagChecking accepts any tag on load.
	NoTagChecking bool
	// StrictVersion fails the load when an archived version differs from
	// the registered one.
	StrictVersion bool

	Binary BinaryEncoding
	// Indent is the number of spaces per nesting level. 2 when zero.
	Indent int
}

func (c Config) withDefaults() Config {
	if c.Registry == nil {
		c.Registry = DefaultRegistry
	}
	if c.Shapes == nil {
		c.Shapes = shape.Default
	}
	if c.Logger == nil {
		c.Logger = Logger()
	}
	if c.Indent <= 0 {
		c.Indent = 2
	}
	return c
}

// Flags is the bit-set form of a Config, used where options travel as a
// single integer.
type Flags uint32

const (
	FlagNoHeader Flags = 1 << iota
	// FlagNoCodecvt is recognized for compatibility. Archives are always UTF-8.
	FlagNoCodecvt
	FlagNoTagChecking
	FlagNoTracking
	FlagHexBinary
	FlagNoTags

	flagsKnown = FlagNoHeader | FlagNoCodecvt | FlagNoTagChecking |
		FlagNoTracking | FlagHexBinary | FlagNoTags
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Known returns f without unrecognized bits.
func (f Flags) Known() Flags {
	return f & flagsKnown
}

// Config converts the flags to a Config. Unknown bits are ignored.
func (f Flags) Config() Config {
	cfg := Config{
		NoHeader:      f.Has(FlagNoHeader),
		NoTagChecking: f.Has(FlagNoTagChecking),
		NoTracking:    f.Has(FlagNoTracking),
		NoTags:        f.Has(FlagNoTags),
	}
	if f.Has(FlagHexBinary) {
		cfg.Binary = BinaryHex
	}
	return cfg
}
