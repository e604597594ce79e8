package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/yaml-archive/archive"
	"github.com/wippyai/yaml-archive/errors"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// level is one container being browsed.
type level struct {
	key      string
	entries  []*archive.Entry
	selected int
}

type browserModel struct {
	err      error
	doc      *archive.Document
	filename string
	levels   []level
	filter   textinput.Model
	styles   treeStyles
	state    modelState
}

type modelState int

const (
	stateBrowse modelState = iota
	stateFilter
)

func newBrowserModel(filename string) *browserModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "key"
	ti.Width = 40
	return &browserModel{
		filename: filename,
		filter:   ti,
		styles:   colorStyles(),
		state:    stateBrowse,
	}
}

type loadedMsg struct {
	err error
	doc *archive.Document
}

func (m *browserModel) Init() tea.Cmd {
	return m.loadDocument
}

func (m *browserModel) loadDocument() tea.Msg {
	doc, err := loadDocument(m.filename)
	return loadedMsg{doc: doc, err: err}
}

// visible returns the entries of the current level that pass the filter.
func (m *browserModel) visible() []*archive.Entry {
	if len(m.levels) == 0 {
		return nil
	}
	entries := m.levels[len(m.levels)-1].entries
	q := strings.TrimSpace(m.filter.Value())
	if q == "" {
		return entries
	}
	var out []*archive.Entry
	for _, e := range entries {
		if strings.Contains(e.Key, q) {
			out = append(out, e)
		}
	}
	return out
}

func (m *browserModel) current() *level {
	return &m.levels[len(m.levels)-1]
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "enter", "esc":
				if msg.String() == "esc" {
					m.filter.SetValue("")
				}
				m.filter.Blur()
				m.state = stateBrowse
				m.current().selected = 0
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.current().selected = 0
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if len(m.levels) > 0 && m.current().selected > 0 {
				m.current().selected--
			}

		case "down", "j":
			if len(m.levels) > 0 && m.current().selected < len(m.visible())-1 {
				m.current().selected++
			}

		case "enter":
			m.descend()

		case "esc", "backspace":
			if len(m.levels) > 1 {
				m.levels = m.levels[:len(m.levels)-1]
				m.filter.SetValue("")
			}

		case "/":
			if len(m.levels) > 0 {
				m.state = stateFilter
				return m, m.filter.Focus()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.doc = msg.doc
		m.levels = []level{{key: "items", entries: msg.doc.Items}}
	}

	return m, nil
}

func (m *browserModel) descend() {
	vis := m.visible()
	if len(vis) == 0 {
		return
	}
	e := vis[m.current().selected]
	if len(e.Children) == 0 {
		return
	}
	m.levels = append(m.levels, level{key: e.Key, entries: e.Children})
	m.filter.SetValue("")
}

func (m *browserModel) path() string {
	segs := make([]string, 0, len(m.levels))
	for _, l := range m.levels {
		segs = append(segs, l.key)
	}
	return errors.FormatPath(segs)
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.doc == nil {
		return "Loading archive..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Archive Browser"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.path()))
	b.WriteString("\n\n")

	vis := m.visible()
	if len(vis) == 0 {
		b.WriteString(helpStyle.Render("(empty)"))
		b.WriteString("\n")
	}
	for i, e := range vis {
		line := e.Key + " " + describeEntry(e, m.styles)
		if len(e.Children) > 0 {
			line += " ▸"
		}
		if i == m.current().selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.state == stateFilter {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter apply • esc clear"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • esc back • / filter • q quit"))
	}

	return b.String()
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newBrowserModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
