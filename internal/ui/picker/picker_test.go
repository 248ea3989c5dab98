package picker

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() []Option {
	return []Option{
		{Label: "Option 1", Value: "1"},
		{Label: "Option 2", Value: "2", Hint: "second"},
		{Label: "Option 3", Value: "3"},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPicker_New(t *testing.T) {
	m := New("Test Title", testOptions())

	assert.Equal(t, "Test Title", m.title)
	assert.Len(t, m.options, 3)
	assert.Equal(t, 0, m.selected, "expected default selection at 0")
}

func TestPicker_SetSelected(t *testing.T) {
	m := New("Test", testOptions())

	m = m.SetSelected(2)
	assert.Equal(t, 2, m.selected)

	m = m.SetSelected(10)
	assert.Equal(t, 2, m.selected, "expected selection unchanged for invalid index")

	m = m.SetSelected(-1)
	assert.Equal(t, 2, m.selected, "expected selection unchanged for negative index")
}

func TestPicker_Selected_Empty(t *testing.T) {
	m := New("Test", nil)
	assert.Equal(t, Option{}, m.Selected())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "enter on an empty picker selects nothing")
}

func TestPicker_Update_Navigate(t *testing.T) {
	m := New("Test", testOptions())

	m, _ = m.Update(runes("j"))
	assert.Equal(t, 1, m.selected)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.selected)
	m, _ = m.Update(runes("j"))
	assert.Equal(t, 2, m.selected, "expected selection to stay at bottom")

	m, _ = m.Update(runes("k"))
	assert.Equal(t, 1, m.selected)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.selected)
	m, _ = m.Update(runes("k"))
	assert.Equal(t, 0, m.selected, "expected selection to stay at top")
}

func TestPicker_Update_Select(t *testing.T) {
	m := New("Test", testOptions()).SetSelected(1)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(SelectMsg)
	require.True(t, ok)
	assert.Equal(t, "2", msg.Option.Value)
}

func TestPicker_Update_Cancel(t *testing.T) {
	m := New("Test", testOptions())

	for _, k := range []tea.KeyMsg{{Type: tea.KeyEsc}, runes("q")} {
		_, cmd := m.Update(k)
		require.NotNil(t, cmd, k.String())
		assert.Equal(t, CancelMsg{}, cmd())
	}
}

func TestPicker_Update_IgnoresOtherMessages(t *testing.T) {
	m := New("Test", testOptions())
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 10})
	assert.Nil(t, cmd)
	assert.Equal(t, m, next)
}

func TestPicker_SetSizeAndBoxWidth(t *testing.T) {
	m := New("Test", testOptions()).SetSize(120, 40).SetBoxWidth(50)
	assert.Equal(t, 120, m.viewportWidth)
	assert.Equal(t, 40, m.viewportHeight)
	assert.Equal(t, 50, m.boxWidth)

	m2 := m.SetSize(80, 24)
	assert.Equal(t, 80, m2.viewportWidth)
	assert.Equal(t, 120, m.viewportWidth, "expected original model unchanged")
}

func TestPicker_FindIndexByValue(t *testing.T) {
	options := testOptions()
	assert.Equal(t, 1, FindIndexByValue(options, "2"))
	assert.Equal(t, 2, FindIndexByValue(options, "3"))
	assert.Equal(t, 0, FindIndexByValue(options, "nonexistent"))
}

func TestPicker_View(t *testing.T) {
	view := ansi.Strip(New("Select Option", testOptions()).SetSelected(1).View())

	assert.Contains(t, view, "Select Option")
	assert.Contains(t, view, " Option 1")
	assert.Contains(t, view, ">Option 2 second")
	assert.Contains(t, view, " Option 3")
}

func TestPicker_Overlay(t *testing.T) {
	m := New("Pick", testOptions()).SetSize(40, 12)

	bg := ""
	for i := 0; i < 12; i++ {
		bg += "................................................\n"
	}
	out := ansi.Strip(m.Overlay(bg))
	assert.Contains(t, out, "Pick")
	assert.Contains(t, out, "....", "background shows around the box")

	alone := ansi.Strip(m.Overlay(""))
	assert.Contains(t, alone, "Option 3")
}
