package archive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/yaml-archive/errors"
)

func TestRecord_Tagged(t *testing.T) {
	cfg := Config{Registry: testRegistry(t)}
	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.Save(Point{X: 1, Y: -4}))
	})

	want := "archive: yaml-archive\nversion: 1\nitems:\n" +
		"  - !point\n" +
		"    _version: 2\n" +
		"    x: 1\n" +
		"    y: -4\n"
	assert.Equal(t, want, text)

	var p Point
	r := open(t, cfg, text)
	require.NoError(t, r.Load(&p))
	assert.Equal(t, Point{X: 1, Y: -4}, p)
	assert.Empty(t, r.VersionMismatches())
}

func TestRecord_NoTags(t *testing.T) {
	cfg := Config{Registry: testRegistry(t), NoTags: true, NoHeader: true}
	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.Save(Point{X: 5, Y: 6}))
	})
	assert.Equal(t, "-\n  x: 5\n  y: 6\n", text)

	var p Point
	require.NoError(t, open(t, cfg, text).Load(&p))
	assert.Equal(t, Point{X: 5, Y: 6}, p)
}

func TestTagErrors(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		text string
		want error
	}{
		{
			name: "registered but different",
			text: "- !other\n  _version: 1\n  name: \"x\"\n",
			want: errors.ErrTagMismatch,
		},
		{
			name: "unknown name",
			text: "- !planet\n  _version: 1\n  x: 1\n  y: 2\n",
			want: errors.ErrTagName,
		},
		{
			name: "core tag of another kind",
			text: "- !!seq [1, 2]\n",
			want: errors.ErrParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Point
			err := open(t, Config{Registry: reg}, tt.text).Load(&p)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTagErrors_Scalars(t *testing.T) {
	reg := testRegistry(t)

	r := open(t, Config{Registry: reg}, "- !point 5\n")
	_, err := r.LoadInt()
	assert.ErrorIs(t, err, errors.ErrTagMismatch)

	r = open(t, Config{Registry: reg}, "- !nope 5\n")
	_, err = r.LoadInt()
	assert.ErrorIs(t, err, errors.ErrTagName)
	var ae *errors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "!nope", ae.Found)
	assert.Equal(t, 1, ae.Line)

	r = open(t, Config{Registry: reg}, "- !!int 5\n- !!str \"x\"\n")
	i, err := r.LoadInt()
	require.NoError(t, err)
	assert.Equal(t, 5, i)
	s, err := r.LoadString()
	require.NoError(t, err)
	assert.Equal(t, "x", s)
}

func TestNoTagChecking(t *testing.T) {
	reg := testRegistry(t)
	text := "- !other\n  _version: 2\n  x: 1\n  y: 2\n- !whatever 7\n"

	r := open(t, Config{Registry: reg, NoTagChecking: true}, text)
	var p Point
	require.NoError(t, r.Load(&p))
	assert.Equal(t, Point{X: 1, Y: 2}, p)
	i, err := r.LoadInt()
	require.NoError(t, err)
	assert.Equal(t, 7, i)
}

type profile struct {
	Name  string `archive:"name"`
	Email string `archive:"email,since=2"`
}

func profileRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterType[profile](reg, "profile", 2))
	return reg
}

func TestVersion_OlderArchive(t *testing.T) {
	text := "archive: yaml-archive\nversion: 1\nitems:\n" +
		"  - !profile\n" +
		"    _version: 1\n" +
		"    name: \"ann\"\n"

	r := open(t, Config{Registry: profileRegistry(t)}, text)
	p := profile{Email: "unset"}
	require.NoError(t, r.Load(&p))
	assert.Equal(t, profile{Name: "ann", Email: "unset"}, p)

	require.Len(t, r.VersionMismatches(), 1)
	assert.Equal(t, VersionMismatch{
		Type:     "profile",
		Path:     "items[0]",
		Archived: 1,
		Current:  2,
	}, r.VersionMismatches()[0])
}

func TestVersion_Strict(t *testing.T) {
	text := "- !profile\n  _version: 1\n  name: \"ann\"\n"

	var p profile
	err := open(t, Config{Registry: profileRegistry(t), StrictVersion: true}, text).Load(&p)
	require.ErrorIs(t, err, errors.ErrTagMismatch)

	var ae *errors.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"[0]"}, ae.Path)
	assert.Equal(t, "profile version 2", ae.Expected)
	assert.Equal(t, "version 1", ae.Found)
}

func TestVersion_NewerArchiveWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := Config{Registry: profileRegistry(t), Logger: zap.New(core)}

	text := "- !profile\n" +
		"  _version: 3\n" +
		"  name: \"ann\"\n" +
		"  email: \"a@example.com\"\n" +
		"  phone: \"555\"\n"

	var p profile
	require.NoError(t, open(t, cfg, text).Load(&p))
	assert.Equal(t, profile{Name: "ann", Email: "a@example.com"}, p)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "archived version is newer than registered", entry.Message)
	assert.Equal(t, "profile", entry.ContextMap()["type"])
}

func TestVersion_MissingMeansCurrent(t *testing.T) {
	text := "- name: \"ann\"\n  email: \"a@b\"\n"

	r := open(t, Config{Registry: profileRegistry(t)}, text)
	var p profile
	require.NoError(t, r.Load(&p))
	assert.Equal(t, "a@b", p.Email)
	assert.Empty(t, r.VersionMismatches())
}

func TestRecord_UnexpectedField(t *testing.T) {
	text := "- !point\n  _version: 2\n  x: 1\n  y: 2\n  z: 3\n"

	var p Point
	err := open(t, Config{Registry: testRegistry(t)}, text).Load(&p)
	assert.ErrorIs(t, err, errors.ErrParsing)
	assert.Contains(t, err.Error(), "expected end of record, found field z")
}

type celsius float64

func TestRegisteredScalar(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(celsius(0), "celsius", 1))

	text := save(t, Config{Registry: reg, NoHeader: true}, func(w *Writer) {
		require.NoError(t, w.Save(celsius(21.5)))
	})
	assert.Equal(t, "- !celsius\n  _version: 1\n  _value: 21.5\n", text)

	var c celsius
	require.NoError(t, open(t, Config{Registry: reg}, text).Load(&c))
	assert.Equal(t, celsius(21.5), c)

	// Without tags the value is a bare scalar.
	plain := save(t, Config{Registry: reg, NoHeader: true, NoTags: true}, func(w *Writer) {
		require.NoError(t, w.Save(celsius(-3)))
	})
	assert.Equal(t, "- -3.0\n", plain)
	require.NoError(t, open(t, Config{Registry: reg}, plain).Load(&c))
	assert.Equal(t, celsius(-3), c)
}

type figure interface {
	Area() float64
}

type square struct {
	Side float64 `archive:"side"`
}

func (s square) Area() float64 { return s.Side * s.Side }

type circle struct {
	R float64 `archive:"r"`
}

func (c *circle) Area() float64 { return 3 * c.R * c.R }

type scene struct {
	Figures []figure `archive:"figures"`
}

func figureRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(square{}, "square", 1))
	require.NoError(t, reg.Register(&circle{}, "circle", 1))
	return reg
}

func TestInterface_RoundTrip(t *testing.T) {
	cfg := Config{Registry: figureRegistry(t), NoTags: true}
	c := &circle{R: 1}
	in := scene{Figures: []figure{square{Side: 2}, c, nil, c}}

	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.Save(in))
	})
	// Interface values are tagged even with NoTags.
	assert.Contains(t, text, "- !square\n")
	assert.Contains(t, text, "- &o1 !circle\n")
	assert.Contains(t, text, "- ~\n")
	assert.Contains(t, text, "- *o1\n")

	var out scene
	require.NoError(t, open(t, cfg, text).Load(&out))
	require.Len(t, out.Figures, 4)
	assert.Equal(t, square{Side: 2}, out.Figures[0])
	got, ok := out.Figures[1].(*circle)
	require.True(t, ok)
	assert.Equal(t, 1.0, got.R)
	assert.Nil(t, out.Figures[2])
	assert.Same(t, got, out.Figures[3])
}

func TestInterface_AliasOfUntaggedPointer(t *testing.T) {
	type holder struct {
		P *circle `archive:"p"`
		F figure  `archive:"f"`
	}
	cfg := Config{Registry: figureRegistry(t), NoTags: true, NoHeader: true}
	c := &circle{R: 7}

	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.Save(holder{P: c, F: c}))
	})
	assert.NotContains(t, text, "!circle")
	assert.Contains(t, text, "f: *o1\n")

	var out holder
	require.NoError(t, open(t, cfg, text).Load(&out))
	require.NotNil(t, out.P)
	assert.Equal(t, 7.0, out.P.R)
	assert.Same(t, out.P, out.F)
}

func TestInterface_Errors(t *testing.T) {
	reg := figureRegistry(t)

	t.Run("unregistered on save", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, Config{Registry: reg})
		require.NoError(t, err)
		var f figure = &triangle{}
		err = w.Save(scene{Figures: []figure{f}})
		assert.ErrorIs(t, err, errors.ErrUnsupported)
	})

	t.Run("untagged on load", func(t *testing.T) {
		var s scene
		err := open(t, Config{Registry: reg}, "- figures:\n    - side: 1.0\n").Load(&s)
		assert.ErrorIs(t, err, errors.ErrParsing)
	})

	t.Run("unknown tag on load", func(t *testing.T) {
		var s scene
		err := open(t, Config{Registry: reg}, "- figures:\n    - !hexagon {}\n").Load(&s)
		assert.ErrorIs(t, err, errors.ErrTagName)
	})

	t.Run("type does not implement", func(t *testing.T) {
		reg := figureRegistry(t)
		require.NoError(t, reg.Register(Point{}, "point", 1))
		var s scene
		err := open(t, Config{Registry: reg}, "- figures:\n    - !point {x: 1, y: 2}\n").Load(&s)
		assert.ErrorIs(t, err, errors.ErrTagMismatch)
	})
}

type triangle struct{}

func (*triangle) Area() float64 { return 0 }
