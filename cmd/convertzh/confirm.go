package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"convertzh/internal/report"
)

// interactive reports whether in is a terminal a prompt can be shown on.
// Swapped in tests.
var interactive = func(in io.Reader) bool {
	f, ok := stdinIsFile(in)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// confirm asks a yes/no question. Swapped in tests.
var confirm = runConfirm

func confirmPrompt(entries int, withBackup bool) string {
	msg := fmt.Sprintf("Convert %d entries in place?", entries)
	if withBackup {
		msg = fmt.Sprintf("Back up and convert %d entries in place?", entries)
	}
	return msg
}

type confirmKeyMap struct {
	Yes  key.Binding
	No   key.Binding
	Quit key.Binding
}

func defaultConfirmKeys() confirmKeyMap {
	return confirmKeyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "enter", "esc"),
			key.WithHelp("n", "no"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// confirmModel is a single yes/no question. Anything but an explicit yes
// declines.
type confirmModel struct {
	prompt    string
	keys      confirmKeyMap
	confirmed bool
	done      bool
}

func newConfirmModel(prompt string) confirmModel {
	return confirmModel{prompt: prompt, keys: defaultConfirmKeys()}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		m.confirmed, m.done = true, true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.No), key.Matches(keyMsg, m.keys.Quit):
		m.confirmed, m.done = false, true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		answer := "no"
		if m.confirmed {
			answer = "yes"
		}
		return fmt.Sprintf("%s %s\n", m.prompt, answer)
	}
	return fmt.Sprintf("%s %s ", report.TitleStyle.Render(m.prompt), report.StatusStyle.Render("[y/N]"))
}

func runConfirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	p := tea.NewProgram(newConfirmModel(prompt), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(confirmModel)
	return ok && m.confirmed, nil
}
