package archive

import (
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/yaml-archive/archive/internal/literal"
	"github.com/wippyai/yaml-archive/errors"
)

// EntryKind classifies a node of an inspected archive.
type EntryKind uint8

const (
	EntryScalar EntryKind = iota
	EntryString
	EntryBinary
	EntryNull
	EntrySequence
	EntryRecord
	EntryAlias
)

func (k EntryKind) String() string {
	switch k {
	case EntryScalar:
		return "scalar"
	case EntryString:
		return "string"
	case EntryBinary:
		return "binary"
	case EntryNull:
		return "null"
	case EntrySequence:
		return "sequence"
	case EntryRecord:
		return "record"
	case EntryAlias:
		return "alias"
	}
	return "unknown"
}

// Entry is one value of an archive, without Go types attached.
type Entry struct {
	Key    string // field name inside records, "[i]" inside sequences
	Tag    string
	Anchor string
	Alias  string
	// Value is the token text of scalars, strings and binary entries.
	Value    string
	Children []*Entry
	Line     int
	// Size is the decoded length of binary entries.
	Size       int
	Version    uint32
	Kind       EntryKind
	HasVersion bool
}

// Document is an inspected archive.
type Document struct {
	Items         []*Entry
	FormatVersion uint32
	Objects       int
	Header        bool
}

// Inspect parses an archive without loading it into Go values.
func Inspect(r io.Reader) (*Document, error) {
	if r == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "reader cannot be nil")
	}
	items, version, header, err := parseDocument(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{Header: header, FormatVersion: version}
	for i, n := range items.Content {
		doc.Items = append(doc.Items, doc.entry("["+strconv.Itoa(i)+"]", n))
	}
	return doc, nil
}

func (d *Document) entry(key string, n *yaml.Node) *Entry {
	e := &Entry{
		Key:    key,
		Line:   n.Line,
		Anchor: n.Anchor,
	}
	if n.Anchor != "" {
		d.Objects++
	}
	if n.Style&yaml.TaggedStyle != 0 {
		e.Tag = n.Tag
	}

	switch n.Kind {
	case yaml.AliasNode:
		e.Kind = EntryAlias
		e.Alias = n.Value
	case yaml.SequenceNode:
		e.Kind = EntrySequence
		for i, c := range n.Content {
			e.Children = append(e.Children, d.entry("["+strconv.Itoa(i)+"]", c))
		}
	case yaml.MappingNode:
		e.Kind = EntryRecord
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if i == 0 && k.Value == versionKey {
				if ver, err := literal.ParseUint(v.Value, 32); err == nil {
					e.Version = uint32(ver)
					e.HasVersion = true
					continue
				}
			}
			e.Children = append(e.Children, d.entry(k.Value, v))
		}
	case yaml.ScalarNode:
		e.Value = n.Value
		switch {
		case isNull(n):
			e.Kind = EntryNull
		case literal.IsBinaryTag(n.Tag):
			e.Kind = EntryBinary
			if b, err := literal.DecodeBinary(n.Tag, n.Value); err == nil {
				e.Size = len(b)
			}
		case n.Style&quotedStyles != 0:
			e.Kind = EntryString
		default:
			e.Kind = EntryScalar
		}
	}
	return e
}

// Walk visits every entry depth-first with its path. Returning false from fn
// skips the children of that entry.
func (d *Document) Walk(fn func(path []string, e *Entry) bool) {
	for _, e := range d.Items {
		walk(nil, e, fn)
	}
}

func walk(parent []string, e *Entry, fn func([]string, *Entry) bool) {
	path := extend(parent, e.Key)
	if !fn(path, e) {
		return
	}
	for _, c := range e.Children {
		walk(path, c, fn)
	}
}

// Count returns the number of entries in the document.
func (d *Document) Count() int {
	n := 0
	d.Walk(func([]string, *Entry) bool {
		n++
		return true
	})
	return n
}
