package archive

import "reflect"

// Kind is the encoding a compiled plan chooses for a Go type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindWString
	KindBinary
	KindFixedBinary
	KindVersion
	KindSequence
	KindRecord
	KindCustom
	KindPointer
	KindInterface
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindBool:        "bool",
	KindInt:         "int",
	KindUint:        "uint",
	KindFloat:       "float",
	KindString:      "string",
	KindWString:     "wstring",
	KindBinary:      "binary",
	KindFixedBinary: "fixed binary",
	KindVersion:     "version",
	KindSequence:    "sequence",
	KindRecord:      "record",
	KindCustom:      "custom record",
	KindPointer:     "pointer",
	KindInterface:   "interface",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar reports whether values of the kind are written as one token.
func (k Kind) IsScalar() bool {
	switch k {
	case KindBool, KindInt, KindUint, KindFloat, KindString, KindWString,
		KindBinary, KindFixedBinary, KindVersion:
		return true
	}
	return false
}

// Version is a schema version counter. Fields of this type are written as
// unsigned decimals and never carry a tag.
type Version uint32

// WideString is a string of code points. It is archived as a quoted string,
// never as a sequence of integers.
type WideString []rune

// Saver is implemented by types that write their own fields. version is the
// registered version of the type (0 when unregistered).
type Saver interface {
	SaveArchive(w *Writer, version uint32) error
}

// Loader is the mirror of Saver. version is the version found in the archive,
// which may be older than the registered one.
type Loader interface {
	LoadArchive(r *Reader, version uint32) error
}

var (
	saverType      = reflect.TypeOf((*Saver)(nil)).Elem()
	loaderType     = reflect.TypeOf((*Loader)(nil)).Elem()
	versionType    = reflect.TypeOf(Version(0))
	wideStringType = reflect.TypeOf(WideString(nil))
)
