// Package prompt renders interactive prompts with charmbracelet/huh.
package prompt

import (
	"errors"
	"os"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/serverkit/addonctl/internal/terminal"
)

var (
	// ErrNotInteractive is returned when a prompt is shown without a
	// terminal. Callers fall back to flags.
	ErrNotInteractive = errors.New("interactive prompts need a terminal (use --yes or pass arguments)")

	// ErrAborted is returned when the user leaves a prompt with esc or
	// ctrl+c.
	ErrAborted = errors.New("aborted")
)

// Option is one choice in a select prompt.
type Option struct {
	Label    string
	Value    string
	Selected bool
}

// UI is the set of prompts the commands use.
type UI interface {
	Select(title string, options []Option, value *string) error
	MultiSelect(title string, options []Option, selected *[]string) error
	Confirm(title string, value *bool) error
	Input(title string, value *string) error
}

// HuhUI implements UI with huh forms rendered on stderr.
type HuhUI struct {
	isTerminal func() bool
}

var runFormFunc = func(form *huh.Form) error { return form.Run() }

// NewHuhUI returns a UI that refuses to prompt without a terminal.
func NewHuhUI() *HuhUI {
	return &HuhUI{isTerminal: terminal.IsInteractive}
}

func keyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "cancel"))
	return km
}

func (ui *HuhUI) runForm(form *huh.Form) error {
	check := ui.isTerminal
	if check == nil {
		check = terminal.IsInteractive
	}
	if !check() {
		return ErrNotInteractive
	}

	form.WithKeyMap(keyMap())
	form.WithProgramOptions(tea.WithOutput(os.Stderr))

	err := runFormFunc(form)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

func huhOptions(options []Option) []huh.Option[string] {
	out := make([]huh.Option[string], len(options))
	for i, o := range options {
		label := o.Label
		if label == "" {
			label = o.Value
		}
		out[i] = huh.NewOption(label, o.Value).Selected(o.Selected)
	}
	return out
}

// Select renders a single-choice prompt.
func (ui *HuhUI) Select(title string, options []Option, value *string) error {
	return ui.runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(huhOptions(options)...).
				Value(value),
		),
	))
}

// MultiSelect renders a multi-choice prompt. Options marked Selected start
// out checked.
func (ui *HuhUI) MultiSelect(title string, options []Option, selected *[]string) error {
	*selected = (*selected)[:0]
	for _, o := range options {
		if o.Selected {
			*selected = append(*selected, o.Value)
		}
	}
	return ui.runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Filterable(len(options) > 10).
				Options(huhOptions(options)...).
				Value(selected),
		),
	))
}

// Confirm renders a yes/no prompt.
func (ui *HuhUI) Confirm(title string, value *bool) error {
	return ui.runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(value),
		),
	))
}

// Input renders a text input.
func (ui *HuhUI) Input(title string, value *string) error {
	return ui.runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(value),
		),
	))
}
