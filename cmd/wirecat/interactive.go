package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type pane int

const (
	paneValue pane = iota
	paneHex
)

func (p pane) String() string {
	if p == paneHex {
		return "bytes"
	}
	return "value"
}

// headerLines is the height of the header above the viewport plus the
// help line below it.
const headerLines = 7

type viewerModel struct {
	report   *report
	viewport viewport.Model
	pane     pane
	ready    bool
}

func newViewerModel(r *report) *viewerModel {
	return &viewerModel{report: r}
}

func (m *viewerModel) Init() tea.Cmd {
	return nil
}

func (m *viewerModel) content() string {
	if m.pane == paneHex {
		return m.report.hex
	}
	return m.report.body
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.pane = (m.pane + 1) % 2
			m.viewport.SetContent(m.content())
			m.viewport.GotoTop()
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := max(msg.Height-headerLines, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *viewerModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("wirecat"))
	b.WriteString(" ")
	b.WriteString(m.report.name)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("shape: "), typeStyle.Render(m.report.shape))
	fmt.Fprintf(&b, "%s %d bytes  %s %s\n", labelStyle.Render("size:  "), m.report.size,
		labelStyle.Render("blake3:"), m.report.digest)

	for p := paneValue; p <= paneHex; p++ {
		style := tabStyle
		if p == m.pane {
			style = activeTabStyle
		}
		b.WriteString(style.Render(p.String()))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("↑/↓ scroll • tab switch view • q quit • %3.f%%", m.viewport.ScrollPercent()*100)))
	return b.String()
}

func runInteractive(r *report) error {
	p := tea.NewProgram(newViewerModel(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
