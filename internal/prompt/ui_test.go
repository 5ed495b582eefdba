package prompt

import (
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHuhUI(t *testing.T) {
	ui := NewHuhUI()
	require.NotNil(t, ui)
	assert.NotNil(t, ui.isTerminal)
}

func TestHuhUINoTTY(t *testing.T) {
	ui := &HuhUI{isTerminal: func() bool { return false }}
	opts := []Option{{Value: "a"}, {Value: "b"}}

	var s string
	assert.ErrorIs(t, ui.Select("Title", opts, &s), ErrNotInteractive)

	var multi []string
	assert.ErrorIs(t, ui.MultiSelect("Title", opts, &multi), ErrNotInteractive)

	var b bool
	assert.ErrorIs(t, ui.Confirm("Title", &b), ErrNotInteractive)

	assert.ErrorIs(t, ui.Input("Title", &s), ErrNotInteractive)
}

func withRunForm(t *testing.T, fn func(*huh.Form) error) {
	t.Helper()
	orig := runFormFunc
	t.Cleanup(func() { runFormFunc = orig })
	runFormFunc = fn
}

func TestHuhUIRunFormSuccess(t *testing.T) {
	ui := &HuhUI{isTerminal: func() bool { return true }}
	called := false
	withRunForm(t, func(form *huh.Form) error {
		assert.NotNil(t, form)
		called = true
		return nil
	})

	var b bool
	require.NoError(t, ui.Confirm("Install?", &b))
	assert.True(t, called)
}

func TestHuhUIAbort(t *testing.T) {
	ui := &HuhUI{isTerminal: func() bool { return true }}
	withRunForm(t, func(*huh.Form) error { return huh.ErrUserAborted })

	var s string
	assert.ErrorIs(t, ui.Input("Query", &s), ErrAborted)
}

func TestHuhUIPassesOtherErrors(t *testing.T) {
	ui := &HuhUI{isTerminal: func() bool { return true }}
	boom := errors.New("boom")
	withRunForm(t, func(*huh.Form) error { return boom })

	var s string
	assert.ErrorIs(t, ui.Select("Pick", []Option{{Value: "x"}}, &s), boom)
}

func TestMultiSelectSeedsPreselected(t *testing.T) {
	ui := &HuhUI{isTerminal: func() bool { return true }}
	withRunForm(t, func(*huh.Form) error { return nil })

	selected := []string{"stale"}
	opts := []Option{
		{Label: "A", Value: "a", Selected: true},
		{Label: "B", Value: "b"},
		{Label: "C", Value: "c", Selected: true},
	}
	require.NoError(t, ui.MultiSelect("Review", opts, &selected))
	assert.Equal(t, []string{"a", "c"}, selected)
}
