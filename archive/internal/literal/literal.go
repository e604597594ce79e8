package literal

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Tags of binary tokens.
const (
	TagBase64 = "!!binary"
	TagHex    = "!hex"
)

// Null is the token written for nil pointers and interfaces.
const Null = "~"

var (
	ErrInvalidString = errors.New("string is not valid UTF-8")
	ErrInvalidRune   = errors.New("rune is not a valid Unicode code point")
)

// BinaryFormat selects the text transform used for byte buffers.
type BinaryFormat uint8

const (
	Base64 BinaryFormat = iota
	Hex
)

// FormatInt returns the decimal literal of v.
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// FormatUint returns the decimal literal of v.
func FormatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// ParseInt parses a decimal literal that must fit in bits.
func ParseInt(text string, bits int) (int64, error) {
	if !isDecimal(text, true) {
		return 0, fmt.Errorf("%q is not a decimal integer", text)
	}
	v, err := strconv.ParseInt(text, 10, bits)
	if err != nil {
		return 0, rangeError(text, bits, true, err)
	}
	return v, nil
}

// ParseUint parses an unsigned decimal literal that must fit in bits.
func ParseUint(text string, bits int) (uint64, error) {
	if !isDecimal(text, false) {
		return 0, fmt.Errorf("%q is not an unsigned decimal integer", text)
	}
	v, err := strconv.ParseUint(text, 10, bits)
	if err != nil {
		return 0, rangeError(text, bits, false, err)
	}
	return v, nil
}

// isDecimal accepts an optional sign followed by ASCII digits.
// strconv alone would also accept "0x1F", "1_000" and "+5" for unsigned.
func isDecimal(s string, signed bool) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		if !signed {
			return false
		}
		s = s[1:]
		if s == "" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func rangeError(text string, bits int, signed bool, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		prefix := "int"
		if !signed {
			prefix = "uint"
		}
		return fmt.Errorf("%s overflows %s%d", text, prefix, bits)
	}
	return err
}

// FormatBool returns "true" or "false".
func FormatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// ParseBool accepts exactly "true" or "false".
func ParseBool(text string) (bool, error) {
	switch text {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", text)
}

// FormatFloat returns the shortest literal that parses back to v.
func FormatFloat(v float64, bits int) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}

	s := strconv.FormatFloat(v, 'g', -1, bits)
	// Keep a decimal point so the literal never reads as an integer
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ParseFloat parses a literal produced by FormatFloat.
func ParseFloat(text string, bits int) (float64, error) {
	switch text {
	case ".nan", ".NaN", ".NAN":
		return math.NaN(), nil
	case ".inf", "+.inf", ".Inf", ".INF":
		return math.Inf(1), nil
	case "-.inf", "-.Inf", "-.INF":
		return math.Inf(-1), nil
	}
	// strconv also takes hex floats, underscores and spelled-out inf/nan
	if text == "" || strings.ContainsAny(text, "_xXpPiInN") {
		return 0, fmt.Errorf("%q is not a float", text)
	}
	v, err := strconv.ParseFloat(text, bits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%s overflows float%d", text, bits)
		}
		return 0, fmt.Errorf("%q is not a float", text)
	}
	return v, nil
}

// Quote returns s as a double-quoted literal. Quotes, backslashes and every
// character a YAML reader would reject or fold are escaped. Strings that are
// not valid UTF-8 cannot be represented.
func Quote(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrInvalidString
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		writeRune(&b, r)
	}
	b.WriteByte('"')
	return b.String(), nil
}

// QuoteRunes is Quote for wide strings.
func QuoteRunes(rs []rune) (string, error) {
	var b strings.Builder
	b.Grow(len(rs) + 2)
	b.WriteByte('"')
	for _, r := range rs {
		if !utf8.ValidRune(r) {
			return "", fmt.Errorf("%w: %U", ErrInvalidRune, r)
		}
		writeRune(&b, r)
	}
	b.WriteByte('"')
	return b.String(), nil
}

func writeRune(b *strings.Builder, r rune) {
	switch r {
	case '"':
		b.WriteString(`\"`)
	case '\\':
		b.WriteString(`\\`)
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	case 0:
		b.WriteString(`\0`)
	default:
		switch {
		case r < 0x20 || r == 0x7F:
			fmt.Fprintf(b, `\x%02X`, r)
		case r >= 0x80 && r < 0xA0, // C1 controls and NEL
			r == 0x2028, r == 0x2029, // line and paragraph separators
			r == 0xFEFF, r == 0xFFFE, r == 0xFFFF:
			fmt.Fprintf(b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
}

// EncodeBinary returns the tag and text for b.
func EncodeBinary(format BinaryFormat, b []byte) (tag, text string) {
	if format == Hex {
		return TagHex, hex.EncodeToString(b)
	}
	return TagBase64, base64.StdEncoding.EncodeToString(b)
}

// DecodeBinary inverts EncodeBinary. Whitespace inside the text is ignored.
func DecodeBinary(tag, text string) ([]byte, error) {
	text = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, text)

	switch tag {
	case TagBase64:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %w", err)
		}
		return b, nil
	case TagHex:
		b, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("tag %q is not a binary tag", tag)
}

// IsBinaryTag reports whether tag marks a binary token.
func IsBinaryTag(tag string) bool {
	return tag == TagBase64 || tag == TagHex
}

// Anchor returns the anchor name for object id.
func Anchor(id uint64) string {
	return "o" + strconv.FormatUint(id, 10)
}

// ValidName reports whether s can be used unquoted as a mapping key or tag
// name: a letter or underscore followed by letters, digits, '_', '.', '-',
// and, when tag is set, ':' and '/'.
func ValidName(s string, tag bool) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case i > 0 && (c >= '0' && c <= '9' || c == '.' || c == '-'):
		case i > 0 && tag && (c == ':' || c == '/'):
		default:
			return false
		}
	}
	return true
}
