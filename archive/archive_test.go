package archive

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/yaml-archive/errors"
)

type Point struct {
	X int `archive:"x"`
	Y int `archive:"y"`
}

type other struct {
	Name string `archive:"name"`
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(Point{}, "point", 2))
	require.NoError(t, reg.Register(other{}, "other", 1))
	return reg
}

func save(t *testing.T, cfg Config, fn func(w *Writer)) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, cfg)
	require.NoError(t, err)
	fn(w)
	require.NoError(t, w.Close())
	return buf.String()
}

func open(t *testing.T, cfg Config, text string) *Reader {
	t.Helper()
	r, err := NewReader(strings.NewReader(text), cfg)
	require.NoError(t, err)
	return r
}

func TestScenario_ThreeIntegers(t *testing.T) {
	text := save(t, Config{}, func(w *Writer) {
		require.NoError(t, w.SaveInt(1))
		require.NoError(t, w.SaveInt(2))
		require.NoError(t, w.SaveInt(3))
	})

	assert.Equal(t, "archive: yaml-archive\nversion: 1\nitems:\n  - 1\n  - 2\n  - 3\n", text)

	r := open(t, Config{}, text)
	for _, want := range []int{1, 2, 3} {
		got, err := r.LoadInt()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.False(t, r.More())
	require.NoError(t, r.Close())
}

func TestScenario_IntegerSequence(t *testing.T) {
	text := save(t, Config{}, func(w *Writer) {
		require.NoError(t, w.Save([]int{1, 2, 3}))
	})
	assert.Contains(t, text, "  -\n    - 1\n    - 2\n    - 3\n")

	r := open(t, Config{}, text)
	n, err := r.BeginSequence()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	var got []int
	for r.More() {
		v, err := r.LoadInt()
		require.NoError(t, err)
		got = append(got, v)
	}
	require.NoError(t, r.EndSequence())
	assert.Equal(t, []int{1, 2, 3}, got)

	var again []int
	r = open(t, Config{}, text)
	require.NoError(t, r.Load(&again))
	assert.Equal(t, []int{1, 2, 3}, again)
}

func TestScenario_QuotedString(t *testing.T) {
	s := `he said "hi"` + "\n"
	text := save(t, Config{}, func(w *Writer) {
		require.NoError(t, w.SaveString(s))
	})
	assert.Contains(t, text, `  - "he said \"hi\"\n"`+"\n")

	got, err := open(t, Config{}, text).LoadString()
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestRoundTrip_IntegerLimits(t *testing.T) {
	text := save(t, Config{}, func(w *Writer) {
		require.NoError(t, w.SaveInt8(math.MinInt8))
		require.NoError(t, w.SaveInt8(math.MaxInt8))
		require.NoError(t, w.SaveInt16(math.MinInt16))
		require.NoError(t, w.SaveInt16(math.MaxInt16))
		require.NoError(t, w.SaveInt32(math.MinInt32))
		require.NoError(t, w.SaveInt32(math.MaxInt32))
		require.NoError(t, w.SaveInt64(math.MinInt64))
		require.NoError(t, w.SaveInt64(math.MaxInt64))
		require.NoError(t, w.SaveUint8(math.MaxUint8))
		require.NoError(t, w.SaveUint16(math.MaxUint16))
		require.NoError(t, w.SaveUint32(math.MaxUint32))
		require.NoError(t, w.SaveUint64(math.MaxUint64))
		require.NoError(t, w.SaveUint(0))
		require.NoError(t, w.SaveVersion(7))
	})

	r := open(t, Config{}, text)
	i8, _ := r.LoadInt8()
	assert.Equal(t, int8(math.MinInt8), i8)
	i8, _ = r.LoadInt8()
	assert.Equal(t, int8(math.MaxInt8), i8)
	i16, _ := r.LoadInt16()
	assert.Equal(t, int16(math.MinInt16), i16)
	i16, _ = r.LoadInt16()
	assert.Equal(t, int16(math.MaxInt16), i16)
	i32, _ := r.LoadInt32()
	assert.Equal(t, int32(math.MinInt32), i32)
	i32, _ = r.LoadInt32()
	assert.Equal(t, int32(math.MaxInt32), i32)
	i64, _ := r.LoadInt64()
	assert.Equal(t, int64(math.MinInt64), i64)
	i64, _ = r.LoadInt64()
	assert.Equal(t, int64(math.MaxInt64), i64)
	u8, _ := r.LoadUint8()
	assert.Equal(t, uint8(math.MaxUint8), u8)
	u16, _ := r.LoadUint16()
	assert.Equal(t, uint16(math.MaxUint16), u16)
	u32, _ := r.LoadUint32()
	assert.Equal(t, uint32(math.MaxUint32), u32)
	u64, _ := r.LoadUint64()
	assert.Equal(t, uint64(math.MaxUint64), u64)
	u, _ := r.LoadUint()
	assert.Equal(t, uint(0), u)
	ver, err := r.LoadVersion()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), ver)
}

func TestRoundTrip_Strings(t *testing.T) {
	var controls strings.Builder
	for c := rune(0); c < 0x20; c++ {
		controls.WriteRune(c)
	}
	controls.WriteRune(0x7F)

	inputs := []string{
		"",
		"plain",
		`"quoted"`,
		`back\slash\`,
		"'single'",
		controls.String(),
		"\u0085\u2028\u2029\uFEFF\uFFFE\uFFFF",
		"  leading and trailing  ",
		"# not a comment",
		"key: value",
		"- not an item",
		"~",
		"null",
		"123",
		"ünïcödé ✓ 𝄞 🙂",
		strings.Repeat("long ", 200),
	}

	text := save(t, Config{}, func(w *Writer) {
		for _, s := range inputs {
			require.NoError(t, w.SaveString(s))
		}
		require.NoError(t, w.SaveWString([]rune("wide \"✓\"\t")))
	})

	r := open(t, Config{}, text)
	for _, want := range inputs {
		got, err := r.LoadString()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	ws, err := r.LoadWString()
	require.NoError(t, err)
	assert.Equal(t, []rune("wide \"✓\"\t"), ws)
}

func TestRoundTrip_Floats(t *testing.T) {
	values := []float64{0, 1.5, -2, math.Pi, math.SmallestNonzeroFloat64, math.MaxFloat64, math.Inf(1), math.Inf(-1)}
	text := save(t, Config{}, func(w *Writer) {
		for _, v := range values {
			require.NoError(t, w.SaveFloat64(v))
		}
		require.NoError(t, w.SaveFloat64(math.NaN()))
		require.NoError(t, w.SaveFloat32(0.1))
		require.NoError(t, w.SaveBool(true))
		require.NoError(t, w.SaveBool(false))
	})

	r := open(t, Config{}, text)
	for _, want := range values {
		got, err := r.LoadFloat64()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	nan, err := r.LoadFloat64()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(nan))
	f32, err := r.LoadFloat32()
	require.NoError(t, err)
	assert.Equal(t, float32(0.1), f32)
	b, _ := r.LoadBool()
	assert.True(t, b)
	b, _ = r.LoadBool()
	assert.False(t, b)
}

func TestRoundTrip_Binary(t *testing.T) {
	var payloads [][]byte
	for n := 0; n <= 64; n++ {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(i*37 + n)
		}
		payloads = append(payloads, b)
	}

	for _, enc := range []BinaryEncoding{BinaryBase64, BinaryHex} {
		t.Run(enc.String(), func(t *testing.T) {
			text := save(t, Config{Binary: enc}, func(w *Writer) {
				for _, p := range payloads {
					require.NoError(t, w.SaveBinary(p))
				}
			})

			// The tag selects the transform, not the reader's config.
			r := open(t, Config{}, text)
			for _, want := range payloads {
				got := make([]byte, len(want))
				require.NoError(t, r.LoadBinary(got))
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestBinary_HexToken(t *testing.T) {
	text := save(t, Config{Binary: BinaryHex}, func(w *Writer) {
		require.NoError(t, w.SaveBinary([]byte("hello")))
		require.NoError(t, w.SaveBinary(nil))
	})
	assert.Contains(t, text, "  - !hex 68656c6c6f\n")
	assert.Contains(t, text, "  - !hex \"\"\n")

	r := open(t, Config{}, text)
	b, err := r.LoadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
	b, err = r.LoadBytes()
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestBinary_CountMismatch(t *testing.T) {
	text := save(t, Config{}, func(w *Writer) {
		require.NoError(t, w.SaveBinary([]byte("hello")))
	})

	r := open(t, Config{}, text)
	err := r.LoadBinary(make([]byte, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsing)
	assert.Contains(t, err.Error(), "expected 4 bytes, found 5 bytes")
}

func TestRoundTrip_Struct(t *testing.T) {
	type inner struct {
		Tags []string `archive:"tags"`
	}
	type record struct {
		Name    string     `archive:"name"`
		Count   uint16     `archive:"count"`
		Ratio   float32    `archive:"ratio"`
		On      bool       `archive:"on"`
		Raw     []byte     `archive:"raw"`
		Digest  [4]byte    `archive:"digest"`
		Wide    WideString `archive:"wide"`
		Rev     Version    `archive:"rev"`
		Inner   inner      `archive:"inner"`
		Matrix  [][]int    `archive:"matrix"`
		Empty   []int      `archive:"empty"`
		Skipped int        `archive:"-"`
		hidden  int
	}

	in := record{
		Name:    "thing",
		Count:   65535,
		Ratio:   0.25,
		On:      true,
		Raw:     []byte{0, 1, 2, 255},
		Digest:  [4]byte{0xde, 0xad, 0xbe, 0xef},
		Wide:    WideString("wide"),
		Rev:     3,
		Inner:   inner{Tags: []string{"a", "b"}},
		Matrix:  [][]int{{1, 2}, {}, {3}},
		Empty:   []int{},
		Skipped: 9,
		hidden:  9,
	}

	text := save(t, Config{}, func(w *Writer) {
		require.NoError(t, w.Save(in))
	})
	assert.Contains(t, text, "    empty: []\n")
	assert.Contains(t, text, "    digest: !!binary 3q2+7w==\n")
	assert.NotContains(t, text, "Skipped")
	assert.NotContains(t, text, "hidden")

	var out record
	require.NoError(t, open(t, Config{}, text).Load(&out))

	in.Skipped, in.hidden = 0, 0
	assert.Equal(t, in, out)
}

func TestFixedBinary_WrongLength(t *testing.T) {
	type digest struct {
		Sum [4]byte `archive:"sum"`
	}
	text := "- sum: !!binary aGVsbG8=\n"

	var d digest
	err := open(t, Config{}, text).Load(&d)
	assert.ErrorIs(t, err, errors.ErrParsing)
}

func TestHeaderless(t *testing.T) {
	cfg := Config{NoHeader: true}

	empty := save(t, cfg, func(*Writer) {})
	assert.Equal(t, "[]\n", empty)

	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.SaveInt(1))
		require.NoError(t, w.SaveString("x"))
	})
	assert.Equal(t, "- 1\n- \"x\"\n", text)

	// Readers detect the form on their own.
	r := open(t, Config{}, text)
	i, err := r.LoadInt()
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	s, err := r.LoadString()
	require.NoError(t, err)
	assert.Equal(t, "x", s)
}

func TestEmptyArchive(t *testing.T) {
	text := save(t, Config{}, func(*Writer) {})
	assert.Equal(t, "archive: yaml-archive\nversion: 1\nitems: []\n", text)

	r := open(t, Config{}, text)
	assert.Equal(t, 0, r.Remaining())
	require.NoError(t, r.Close())
}

func TestIndent(t *testing.T) {
	text := save(t, Config{Indent: 4, NoHeader: true}, func(w *Writer) {
		require.NoError(t, w.Save(Point{X: 1, Y: 2}))
	})
	assert.Equal(t, "-\n    x: 1\n    y: 2\n", text)
}
