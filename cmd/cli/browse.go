package cli

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Launch an interactive terminal browser over search results",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := tea.NewProgram(initialBrowseModel(cmd.Context())).Run()
		return err
	},
}

type browseView int

const (
	viewQuery browseView = iota
	viewResults
)

// browseModel is the interactive counterpart to the plain-text tool
// surface: a query box that runs SearchLaws and a scrollable list of
// the rendered result lines.
type browseModel struct {
	ctx context.Context

	mode     browseView
	query    string
	lines    []string
	selected int
	err      string
	quitting bool
}

func initialBrowseModel(ctx context.Context) browseModel {
	return browseModel{ctx: ctx, mode: viewQuery}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

type searchDoneMsg struct {
	lines []string
	err   error
}

func runSearch(ctx context.Context, query string) tea.Cmd {
	return func() tea.Msg {
		out, err := eng.SearchLaws(ctx, query, "", "", 20)
		if err != nil {
			return searchDoneMsg{err: err}
		}
		return searchDoneMsg{lines: strings.Split(strings.TrimRight(out, "\n"), "\n")}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchDoneMsg:
		m.mode = viewResults
		m.selected = 0
		if msg.err != nil {
			m.err = msg.err.Error()
			m.lines = nil
		} else {
			m.err = ""
			m.lines = msg.lines
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

		switch m.mode {
		case viewQuery:
			switch msg.String() {
			case "enter":
				if strings.TrimSpace(m.query) == "" {
					return m, nil
				}
				return m, runSearch(m.ctx, m.query)
			case "backspace":
				if len(m.query) > 0 {
					m.query = m.query[:len(m.query)-1]
				}
			case "esc":
				m.quitting = true
				return m, tea.Quit
			default:
				if len(msg.Runes) > 0 {
					m.query += string(msg.Runes)
				}
			}
		case viewResults:
			switch msg.String() {
			case "up", "k":
				if m.selected > 0 {
					m.selected--
				}
			case "down", "j":
				if m.selected < len(m.lines)-1 {
					m.selected++
				}
			case "esc", "q":
				m.mode = viewQuery
				m.query = ""
				m.lines = nil
			case "/":
				m.mode = viewQuery
				m.query = ""
			}
		}
	}
	return m, nil
}

var (
	browseTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("105")).
		Padding(0, 1)

	browseSelectedStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("170")).
		Background(lipgloss.Color("57"))

	browseHelpStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Italic(true)

	browseErrorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)
)

func (m browseModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(browseTitleStyle.Render("lawctl browse"))
	b.WriteString("\n\n")

	switch m.mode {
	case viewQuery:
		b.WriteString("搜索：" + m.query + "█\n\n")
		b.WriteString(browseHelpStyle.Render("enter to search, esc to quit"))
	case viewResults:
		if m.err != "" {
			b.WriteString(browseErrorStyle.Render(m.err) + "\n")
		}
		for i, line := range m.lines {
			if i == m.selected {
				b.WriteString(browseSelectedStyle.Render(line))
			} else {
				b.WriteString(line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n" + browseHelpStyle.Render("j/k to move, / to search again, q to go back"))
	}
	return b.String()
}
