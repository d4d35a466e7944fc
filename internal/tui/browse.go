package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/c4pm/pkg/models"
)

// Browser is a read-only, scrollable view over a ranking.
type Browser struct {
	problems []models.ProblemRecord
	scheme   models.ScoringScheme

	header   *Header
	footer   *Footer
	viewport viewport.Model
	ready    bool
	width    int

	// selected is the highlighted problem; offsets holds the first content
	// line of each problem.
	selected int
	offsets  []int

	titleStyle    lipgloss.Style
	selectedStyle lipgloss.Style
	labelStyle    lipgloss.Style
	scoreStyle    lipgloss.Style
	quoteStyle    lipgloss.Style
	faintStyle    lipgloss.Style
}

// NewBrowser creates a Browser. problems must already be in ranked order.
func NewBrowser(problems []models.ProblemRecord, scheme models.ScoringScheme) *Browser {
	return &Browser{
		problems: problems,
		scheme:   scheme,
		header:   NewHeader(len(problems), scheme.Total()),
		footer:   NewFooter(len(problems)),
		width:    80,

		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true),

		selectedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12),

		scoreStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true),

		quoteStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Italic(true),

		faintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Browse runs the browser in the alternate screen until the user quits.
func Browse(problems []models.ProblemRecord, scheme models.ScoringScheme) error {
	p := tea.NewProgram(NewBrowser(problems, scheme), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.header.SetWidth(msg.Width)
		height := msg.Height - b.header.Height() - b.footer.Height()
		if height < 1 {
			height = 1
		}
		if !b.ready {
			b.viewport = viewport.New(msg.Width, height)
			b.ready = true
		} else {
			b.viewport.Width = msg.Width
			b.viewport.Height = height
		}
		b.refresh()
		return b, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "n", "tab":
			b.selectProblem(b.selected + 1)
			return b, nil
		case "p", "shift+tab":
			b.selectProblem(b.selected - 1)
			return b, nil
		case "g", "home":
			b.selectProblem(0)
			return b, nil
		case "G", "end":
			b.selectProblem(len(b.problems) - 1)
			b.viewport.GotoBottom()
			b.footer.SetPosition(b.selected, b.viewport.ScrollPercent())
			return b, nil
		}
	}

	if !b.ready {
		return b, nil
	}
	var cmd tea.Cmd
	b.viewport, cmd = b.viewport.Update(msg)
	b.footer.SetPosition(b.selected, b.viewport.ScrollPercent())
	return b, cmd
}

// View implements tea.Model.
func (b *Browser) View() string {
	if !b.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, b.header.View(), b.viewport.View(), b.footer.View())
}

// Selected returns the index of the highlighted problem.
func (b *Browser) Selected() int {
	return b.selected
}

// selectProblem highlights problem i and scrolls it to the top of the view.
func (b *Browser) selectProblem(i int) {
	if len(b.problems) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(b.problems) {
		i = len(b.problems) - 1
	}
	b.selected = i
	b.refresh()
	if b.ready {
		b.viewport.SetYOffset(b.offsets[i])
		b.footer.SetPosition(b.selected, b.viewport.ScrollPercent())
	}
}

// refresh re-renders the content after a resize or a selection change.
func (b *Browser) refresh() {
	content, offsets := b.render()
	b.offsets = offsets
	if b.ready {
		b.viewport.SetContent(content)
	}
}

// render returns the full content and the first line of each problem.
func (b *Browser) render() (string, []int) {
	if len(b.problems) == 0 {
		return b.faintStyle.Render("No problems found."), nil
	}

	var sb strings.Builder
	offsets := make([]int, len(b.problems))
	line := 0
	for i, p := range b.problems {
		offsets[i] = line
		card := b.card(i, p)
		sb.WriteString(card)
		sb.WriteString("\n\n")
		line += strings.Count(card, "\n") + 2
	}
	return sb.String(), offsets
}

func (b *Browser) card(i int, p models.ProblemRecord) string {
	wrap := lipgloss.NewStyle().Width(max(b.width-4, 20))

	title := b.titleStyle
	marker := "  "
	if i == b.selected {
		title = b.selectedStyle
		marker = "▸ "
	}

	var lines []string
	head := marker + title.Render(fmt.Sprintf("%d. %s", i+1, p.Name)) + "  " +
		b.scoreStyle.Render(fmt.Sprintf("%d/%d", p.ImpactScore, b.scheme.Total()))
	if p.Confidence != "" {
		head += b.faintStyle.Render(fmt.Sprintf("  %s confidence", p.Confidence))
	}
	lines = append(lines, head)

	if p.Description != "" {
		lines = append(lines, wrap.Render(p.Description))
	}
	lines = append(lines,
		b.labelStyle.Render("Affected:")+orDash(p.UserSegment),
		b.labelStyle.Render("Severity:")+orDash(string(p.Severity)),
	)
	if p.Frequency > 0 {
		lines = append(lines, b.labelStyle.Render("Mentions:")+fmt.Sprintf("%d transcript(s)", p.Frequency))
	}
	if len(p.MentionedBy) > 0 {
		names := make([]string, 0, len(p.MentionedBy))
		for _, a := range p.MentionedBy {
			if a.Role != "" {
				names = append(names, fmt.Sprintf("%s (%s)", a.Name, a.Role))
			} else {
				names = append(names, a.Name)
			}
		}
		lines = append(lines, b.labelStyle.Render("Raised by:")+strings.Join(names, ", "))
	}

	if p.HasScoring() {
		lines = append(lines, b.labelStyle.Render("Scoring:"))
		for _, f := range models.Factors {
			fs, ok := p.Scoring.Get(f)
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("  %-11s %d/%d  %s", string(f)+":", fs.Score, b.scheme.MaxFor(f),
				b.faintStyle.Render(fs.Reason)))
		}
	}

	if len(p.Evidence) > 0 {
		lines = append(lines, b.labelStyle.Render("Evidence:"))
		for _, q := range p.Evidence {
			lines = append(lines, wrap.Render(b.quoteStyle.Render(fmt.Sprintf("  “%s”", q))))
		}
	}
	if p.Reasoning != "" {
		lines = append(lines, b.labelStyle.Render("Reasoning:")+p.Reasoning)
	}
	if p.Tradeoffs != "" {
		lines = append(lines, b.labelStyle.Render("If ignored:")+p.Tradeoffs)
	}
	if p.Conflicts != "" {
		lines = append(lines, b.labelStyle.Render("Conflicts:")+p.Conflicts)
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
