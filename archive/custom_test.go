package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/yaml-archive/errors"
)

type account struct {
	Owner   string
	Tags    []string
	Balance int64
}

func (a *account) SaveArchive(w *Writer, version uint32) error {
	if err := w.Field("owner").SaveString(a.Owner); err != nil {
		return err
	}
	if err := w.Field("tags").BeginSequence(); err != nil {
		return err
	}
	for _, tag := range a.Tags {
		if err := w.SaveString(tag); err != nil {
			return err
		}
	}
	if err := w.EndSequence(); err != nil {
		return err
	}
	return w.Field("balance").SaveInt64(a.Balance)
}

func (a *account) LoadArchive(r *Reader, version uint32) error {
	var err error
	if a.Owner, err = r.Field("owner").LoadString(); err != nil {
		return err
	}
	n, err := r.Field("tags").BeginSequence()
	if err != nil {
		return err
	}
	a.Tags = make([]string, 0, n)
	for r.More() {
		tag, err := r.LoadString()
		if err != nil {
			return err
		}
		a.Tags = append(a.Tags, tag)
	}
	if err := r.EndSequence(); err != nil {
		return err
	}
	a.Balance, err = r.Field("balance").LoadInt64()
	return err
}

// coords writes its values without field names.
type coords struct {
	X, Y int
}

func (c coords) SaveArchive(w *Writer, version uint32) error {
	_ = w.SaveInt(c.X)
	return w.SaveInt(c.Y)
}

func (c *coords) LoadArchive(r *Reader, version uint32) error {
	var err error
	if c.X, err = r.LoadInt(); err != nil {
		return err
	}
	c.Y, err = r.LoadInt()
	return err
}

func customRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterType[account](reg, "account", 3))
	require.NoError(t, RegisterType[coords](reg, "coords", 1))
	return reg
}

func TestCustom_NamedFields(t *testing.T) {
	cfg := Config{Registry: customRegistry(t)}
	in := account{Owner: "ann", Tags: []string{"a", "b"}, Balance: 100}

	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.Save(in))
		require.NoError(t, w.Save(&account{Owner: "bob"}))
	})

	want := "archive: yaml-archive\nversion: 1\nitems:\n" +
		"  - !account\n" +
		"    _version: 3\n" +
		"    owner: \"ann\"\n" +
		"    tags:\n" +
		"      - \"a\"\n" +
		"      - \"b\"\n" +
		"    balance: 100\n" +
		"  - &o1 !account\n" +
		"    _version: 3\n" +
		"    owner: \"bob\"\n" +
		"    tags: []\n" +
		"    balance: 0\n"
	assert.Equal(t, want, text)

	r := open(t, cfg, text)
	var out account
	require.NoError(t, r.Load(&out))
	assert.Equal(t, in, out)

	var bob *account
	require.NoError(t, r.Load(&bob))
	require.NotNil(t, bob)
	assert.Equal(t, "bob", bob.Owner)
	assert.Empty(t, bob.Tags)
	require.NoError(t, r.Close())
}

func TestCustom_PositionalFields(t *testing.T) {
	cfg := Config{Registry: customRegistry(t), NoHeader: true}

	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.Save(coords{X: 3, Y: 4}))
	})
	assert.Equal(t, "- !coords\n  _version: 1\n  _0: 3\n  _1: 4\n", text)

	var c coords
	require.NoError(t, open(t, cfg, text).Load(&c))
	assert.Equal(t, coords{X: 3, Y: 4}, c)
}

func TestCustom_InsideRecord(t *testing.T) {
	type ledger struct {
		Main  account  `archive:"main"`
		Spots []coords `archive:"spots"`
	}
	cfg := Config{Registry: customRegistry(t), NoTags: true}
	in := ledger{
		Main:  account{Owner: "x", Tags: []string{"t"}, Balance: -1},
		Spots: []coords{{1, 2}, {3, 4}},
	}

	text := save(t, cfg, func(w *Writer) {
		require.NoError(t, w.Save(in))
	})

	var out ledger
	require.NoError(t, open(t, cfg, text).Load(&out))
	assert.Equal(t, in, out)
}

func TestCustom_FieldNameMismatch(t *testing.T) {
	text := "- !account\n  _version: 3\n  name: \"ann\"\n  tags: []\n  balance: 1\n"

	var a account
	err := open(t, Config{Registry: customRegistry(t)}, text).Load(&a)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsing)
	assert.Contains(t, err.Error(), "expected field owner, found field name")
}

func TestCustom_MissingField(t *testing.T) {
	text := "- !account\n  _version: 3\n  owner: \"ann\"\n"

	var a account
	err := open(t, Config{Registry: customRegistry(t)}, text).Load(&a)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsing)
	assert.Contains(t, err.Error(), "found end of record")
}

type leaky struct{}

func (leaky) SaveArchive(w *Writer, version uint32) error {
	return w.BeginSequence()
}

func (*leaky) LoadArchive(r *Reader, version uint32) error {
	_, err := r.BeginSequence()
	return err
}

func TestCustom_LeftSequenceOpen(t *testing.T) {
	w, err := NewWriter(discard{}, Config{NoHeader: true})
	require.NoError(t, err)
	err = w.Save(leaky{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SaveArchive left a sequence open")

	var l leaky
	err = open(t, Config{}, "- _0: []\n").Load(&l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LoadArchive left a sequence open")
}
