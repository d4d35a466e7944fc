package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the c4pm title bar above the problem list.
type Header struct {
	width    int
	problems int
	total    int

	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
}

// NewHeader creates a new Header for a ranking of problems scored out of
// total points.
func NewHeader(problems, total int) *Header {
	return &Header{
		width:    80,
		problems: problems,
		total:    total,

		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true),

		subtitleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true),
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View() string {
	title := h.titleStyle.Render("c4pm · ranked problems")
	subtitle := h.subtitleStyle.Render(fmt.Sprintf("%d problem(s), impact scored out of %d", h.problems, h.total))

	return lipgloss.NewStyle().
		Width(h.width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("238")).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, subtitle))
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 3 // title + subtitle + border
}
