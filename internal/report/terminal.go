package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

func stringPtr(s string) *string { return &s }

// TerminalOptions controls RenderTerminal.
type TerminalOptions struct {
	Width int
	// Color selects the dracula palette; otherwise plain ASCII styling is used
	// so output piped to a file stays readable.
	Color bool
}

// RenderTerminal renders markdown for display in a terminal.
func RenderTerminal(markdown string, opts TerminalOptions) (string, error) {
	width := opts.Width
	if width <= 0 {
		width = 80
	}

	style := styles.ASCIIStyleConfig
	if opts.Color {
		style = styles.DraculaStyleConfig
		style.Code = ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color:           stringPtr("229"),
				BackgroundColor: stringPtr(""),
			},
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}

	// The frontmatter is metadata; the body is what a reader wants to see.
	if _, body, err := ParseFrontmatter(markdown); err == nil {
		markdown = body
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

var (
	listHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	listVersionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	listDateStyle     = lipgloss.NewStyle().Faint(true)
	listHeadlineStyle = lipgloss.NewStyle()
	listLatestStyle   = lipgloss.NewStyle().Bold(true)
)

// RenderList renders version summaries as an aligned table, newest first.
func RenderList(summaries []core.VersionSummary) string {
	if len(summaries) == 0 {
		return "No versions recorded yet.\n"
	}

	tagWidth := len("TAG")
	for _, s := range summaries {
		tagWidth = max(tagWidth, lipgloss.Width(s.Tag))
	}

	var sb strings.Builder
	sb.WriteString(listHeaderStyle.Render(fmt.Sprintf("%-6s %-10s %-*s %-5s %s",
		"VER", "DATE", tagWidth, "TAG", "DIFFS", "HEADLINE")))
	sb.WriteByte('\n')

	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		headline := listHeadlineStyle
		if i == len(summaries)-1 {
			headline = listLatestStyle
		}
		fmt.Fprintf(&sb, "%s %s %-*s %-5d %s\n",
			listVersionStyle.Render(fmt.Sprintf("%-6s", fmt.Sprintf("v%d", s.Version))),
			listDateStyle.Render(s.CreatedAt.UTC().Format(core.TagDateLayout)),
			tagWidth, s.Tag,
			s.DifferenceCount,
			headline.Render(s.Headline))
	}
	return sb.String()
}
