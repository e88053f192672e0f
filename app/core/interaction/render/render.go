// Package render draws chat messages and the task tree for the
// terminal. Sorting here is display-only: completed tasks sink below
// open ones and newer tasks come first, while the stored order stays
// untouched.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"arbor/app/core/forest"
	"arbor/app/pkg/types"
)

const (
	glyphDone = "✓"
	glyphOpen = "○"

	indentStep    = 2
	defaultWidth  = 100
	minTitleWidth = 20
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "26", Dark: "39"})
	aiStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"})
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "245"}).Italic(true)
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "241"})
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "241"})
	doneTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "241"}).Strikethrough(true)
	doneGlyphStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "34"})

	priorityStyles = map[forest.Priority]lipgloss.Style{
		forest.PriorityHigh: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "166", Dark: "208"}),
		forest.PriorityLow:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "242"}),
	}
)

// DisableColor strips all styling from rendered output.
func DisableColor() {
	userStyle = lipgloss.NewStyle()
	aiStyle = lipgloss.NewStyle()
	systemStyle = lipgloss.NewStyle()
	timeStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	doneTitleStyle = lipgloss.NewStyle()
	doneGlyphStyle = lipgloss.NewStyle()
	priorityStyles = map[forest.Priority]lipgloss.Style{}
}

// AutoDetect disables styling when stdout is not a terminal or the
// environment reports no color support.
func AutoDetect() {
	if !term.IsTerminal(int(os.Stdout.Fd())) || termenv.EnvColorProfile() == termenv.Ascii {
		DisableColor()
	}
}

// Message prints one chat line with a local-time stamp and a sender
// tag.
func Message(w io.Writer, msg types.ChatMessage) {
	stamp := timeStyle.Render(msg.Timestamp.Local().Format("15:04"))

	var tag string
	text := msg.Text
	switch msg.Sender {
	case types.SenderUser:
		tag = userStyle.Render("you")
	case types.SenderAI:
		tag = aiStyle.Render(" ai")
	default:
		tag = systemStyle.Render("sys")
		text = systemStyle.Render(text)
	}
	fmt.Fprintf(w, "%s %s %s\n", stamp, tag+">", text)
}

// TaskTree prints the forest in display order, one task per line,
// subtasks indented below their parent.
func TaskTree(w io.Writer, tasks []forest.Task) {
	sorted := forest.SortForDisplay(tasks)
	if len(sorted) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No tasks yet. Ask the assistant to add one."))
		return
	}
	width := terminalWidth()
	for _, t := range sorted {
		writeTask(w, t, 0, width)
	}
}

// Summary prints a one-line count of the forest.
func Summary(w io.Writer, tasks []forest.Task) {
	total, completed := forest.Count(tasks)
	fmt.Fprintf(w, "%d task(s), %d done\n", total, completed)
}

func writeTask(w io.Writer, t forest.Task, depth int, width int) {
	indent := strings.Repeat(" ", depth*indentStep)
	badge := priorityBadge(t.Priority)

	// Width math runs on the plain text; styling is applied afterwards
	// so escape codes never count against the budget.
	reserved := len(indent) + 2 + len(badge) + 2 + len(t.ID)
	title := truncate(t.Title, width-reserved)

	glyph := glyphOpen
	if t.Completed {
		glyph = doneGlyphStyle.Render(glyphDone)
		title = doneTitleStyle.Render(title)
	}
	if style, ok := priorityStyles[t.Priority]; ok && badge != "" {
		badge = style.Render(badge)
	}

	fmt.Fprintf(w, "%s%s %s%s  %s\n", indent, glyph, title, badge, dimStyle.Render(t.ID))

	for _, sub := range t.Subtasks {
		writeTask(w, sub, depth+1, width)
	}
}

func priorityBadge(p forest.Priority) string {
	switch p {
	case forest.PriorityHigh:
		return " (high)"
	case forest.PriorityLow:
		return " (low)"
	default:
		return ""
	}
}

func truncate(s string, limit int) string {
	if limit < minTitleWidth {
		limit = minTitleWidth
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
