package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/yaml-archive/archive"
)

type treeStyles struct {
	key    lipgloss.Style
	tag    lipgloss.Style
	anchor lipgloss.Style
	value  lipgloss.Style
	dim    lipgloss.Style
}

func plainStyles() treeStyles {
	s := lipgloss.NewStyle()
	return treeStyles{key: s, tag: s, anchor: s, value: s, dim: s}
}

func colorStyles() treeStyles {
	return treeStyles{
		key:    lipgloss.NewStyle().Bold(true),
		tag:    typeStyle,
		anchor: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD27F")),
		value:  resultStyle,
		dim:    helpStyle,
	}
}

// stylesFor colours output only when w is a terminal.
func stylesFor(w io.Writer) treeStyles {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return colorStyles()
	}
	return plainStyles()
}

func loadDocument(path string) (*archive.Document, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return archive.Inspect(in)
}

func inspectFile(path string, w io.Writer) error {
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}
	printTree(w, doc, stylesFor(w))
	return nil
}

func printTree(w io.Writer, doc *archive.Document, st treeStyles) {
	if doc.Header {
		fmt.Fprintf(w, "%s\n", st.dim.Render(fmt.Sprintf("yaml-archive format %d", doc.FormatVersion)))
	} else {
		fmt.Fprintf(w, "%s\n", st.dim.Render("yaml-archive without header"))
	}
	doc.Walk(func(path []string, e *archive.Entry) bool {
		indent := strings.Repeat("  ", len(path)-1)
		fmt.Fprintf(w, "%s%s %s\n", indent, st.key.Render(e.Key), describeEntry(e, st))
		return true
	})
}

// describeEntry renders everything about e except its key.
func describeEntry(e *archive.Entry, st treeStyles) string {
	var parts []string
	if e.Anchor != "" {
		parts = append(parts, st.anchor.Render("&"+e.Anchor))
	}
	if e.Tag != "" {
		parts = append(parts, st.tag.Render(e.Tag))
	}

	switch e.Kind {
	case archive.EntryAlias:
		parts = append(parts, st.anchor.Render("*"+e.Alias))
	case archive.EntryRecord:
		label := fmt.Sprintf("record, %d fields", len(e.Children))
		if e.HasVersion {
			label += fmt.Sprintf(", version %d", e.Version)
		}
		parts = append(parts, st.dim.Render(label))
	case archive.EntrySequence:
		parts = append(parts, st.dim.Render(fmt.Sprintf("sequence, %d elements", len(e.Children))))
	case archive.EntryBinary:
		parts = append(parts, st.dim.Render(fmt.Sprintf("%d bytes", e.Size)))
	case archive.EntryString:
		parts = append(parts, st.value.Render(fmt.Sprintf("%q", e.Value)))
	case archive.EntryNull:
		parts = append(parts, st.dim.Render("null"))
	default:
		parts = append(parts, st.value.Render(e.Value))
	}
	return strings.Join(parts, " ")
}

func checkFile(path string, w io.Writer) error {
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "ok: %d items, %d entries, %d shared objects\n",
		len(doc.Items), doc.Count(), doc.Objects)
	return nil
}
