package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Footer renders the scroll position and keyboard hints.
type Footer struct {
	current int
	count   int
	percent float64

	hintStyle      lipgloss.Style
	positionStyle  lipgloss.Style
	separatorStyle lipgloss.Style
}

// NewFooter creates a new Footer instance.
func NewFooter(count int) *Footer {
	return &Footer{
		count: count,

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		positionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		separatorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")),
	}
}

// SetPosition records the selected problem (0-indexed) and the scroll
// percentage of the viewport.
func (f *Footer) SetPosition(current int, percent float64) {
	f.current = current
	f.percent = percent
}

// View renders the footer.
func (f *Footer) View() string {
	sep := f.separatorStyle.Render(" │ ")
	left := f.positionStyle.Render(fmt.Sprintf("%d/%d", f.current+1, f.count))
	pct := f.hintStyle.Render(fmt.Sprintf("%3.0f%%", f.percent*100))
	hints := f.hintStyle.Render("↑/↓ scroll │ n/p next/prev problem │ g/G top/bottom │ q quit")
	if f.count == 0 {
		left = f.positionStyle.Render("0/0")
	}
	return left + sep + pct + sep + hints
}

// Height returns the footer height in lines.
func (f *Footer) Height() int {
	return 1
}
