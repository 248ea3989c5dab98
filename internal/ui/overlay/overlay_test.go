package overlay

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

func TestPlace_Center(t *testing.T) {
	bg := "AAAAA\nAAAAA\nAAAAA"
	result := Place(Config{Width: 5, Height: 3, Position: Center}, "XX", bg)

	lines := strings.Split(result, "\n")
	require.Equal(t, []string{"AAAAA", "AXXAA", "AAAAA"}, lines)
}

func TestPlace_Bottom(t *testing.T) {
	bg := "AAAAA\nAAAAA\nAAAAA\nAAAAA"
	result := Place(Config{Width: 5, Height: 4, Position: Bottom, PadY: 1}, "X", bg)

	lines := strings.Split(result, "\n")
	require.Equal(t, "AAXAA", lines[2])
	require.Equal(t, "AAAAA", lines[3])
}

func TestPlace_PadsShortBackground(t *testing.T) {
	result := Place(Config{Width: 4, Height: 3, Position: Center}, "X", "AA")

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 3)
	require.Equal(t, " X  ", lines[1])
}

func TestPlace_LargeForegroundClamps(t *testing.T) {
	result := Place(Config{Width: 3, Height: 2, Position: Center}, "XXXXX\nXXXXX\nXXXXX", "AAA\nAAA")

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "XXXXX", lines[0])
}

func TestPlace_PreservesStyledBackground(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	bg := red.Render("AAAAAAA")

	result := Place(Config{Width: 7, Height: 1, Position: Center}, "X", bg)

	require.Equal(t, "AAAXAAA", ansi.Strip(result))
}
