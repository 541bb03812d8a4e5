package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// maxListed caps how many items the prompt prints before summarizing.
const maxListed = 20

type confirmKeys struct {
	Yes  key.Binding
	No   key.Binding
	Quit key.Binding
}

var keys = confirmKeys{
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "continue"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N", "enter", "esc"),
		key.WithHelp("n/enter", "abort"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "abort"),
	),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			PaddingLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// ConfirmModel is a yes/no prompt that defaults to no.
type ConfirmModel struct {
	question string
	items    []string
	answered bool
	accepted bool
}

// NewConfirm creates a prompt asking question, listing items above it.
func NewConfirm(question string, items []string) ConfirmModel {
	return ConfirmModel{question: question, items: items}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Yes):
			m.answered, m.accepted = true, true
			return m, tea.Quit
		case key.Matches(msg, keys.No), key.Matches(msg, keys.Quit):
			m.answered, m.accepted = true, false
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.answered {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.question))
	sb.WriteString("\n")
	for _, line := range listing(m.items) {
		sb.WriteString(itemStyle.Render(line))
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render(fmt.Sprintf("[%s] %s  [%s] %s",
		keys.Yes.Help().Key, keys.Yes.Help().Desc,
		keys.No.Help().Key, keys.No.Help().Desc)))
	sb.WriteString("\n")
	return sb.String()
}

// Accepted reports whether the user answered yes.
func (m ConfirmModel) Accepted() bool {
	return m.accepted
}

func listing(items []string) []string {
	if len(items) <= maxListed {
		return items
	}
	out := append([]string(nil), items[:maxListed]...)
	return append(out, fmt.Sprintf("... and %d more", len(items)-maxListed))
}

// Confirm asks question on the terminal and reports whether the user
// accepted. When stdin is not a terminal it falls back to reading one line
// from stdin; anything other than "y" or "yes" declines.
func Confirm(question string, items []string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ConfirmLine(os.Stdin, os.Stderr, question, items)
	}

	p := tea.NewProgram(NewConfirm(question, items), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return final.(ConfirmModel).Accepted(), nil
}

// ConfirmLine is the line-oriented prompt used without a terminal.
func ConfirmLine(in io.Reader, out io.Writer, question string, items []string) (bool, error) {
	fmt.Fprintln(out, question)
	for _, line := range listing(items) {
		fmt.Fprintf(out, "  %s\n", line)
	}
	fmt.Fprint(out, "Continue? [y/N] ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
