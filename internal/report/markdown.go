// Package report renders history versions as markdown for export, the
// terminal, and the dashboard API.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// Frontmatter is the YAML header written above every rendered version.
type Frontmatter struct {
	Version     int       `yaml:"version"`
	Tag         string    `yaml:"tag"`
	Model       string    `yaml:"model"`
	CreatedAt   time.Time `yaml:"created_at"`
	Headline    string    `yaml:"headline"`
	Differences int       `yaml:"differences"`
	Total       int       `yaml:"total_versions,omitempty"`
}

// FrontmatterFor builds the header for rec.
func FrontmatterFor(rec core.VersionRecord) Frontmatter {
	return Frontmatter{
		Version:     rec.Version,
		Tag:         rec.Tag,
		Model:       rec.Model,
		CreatedAt:   rec.CreatedAt.UTC(),
		Headline:    rec.Headline,
		Differences: len(rec.Differences),
	}
}

// Render produces the frontmatter block with its delimiters.
func (f Frontmatter) Render() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	return "---\n" + buf.String() + "---\n\n", nil
}

// ParseFrontmatter splits a rendered document into its header and body.
func ParseFrontmatter(doc string) (Frontmatter, string, error) {
	var fm Frontmatter
	if !strings.HasPrefix(doc, "---\n") {
		return fm, doc, fmt.Errorf("missing frontmatter delimiter")
	}
	rest := doc[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return fm, doc, fmt.Errorf("unterminated frontmatter")
	}
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &fm); err != nil {
		return fm, doc, fmt.Errorf("decoding frontmatter: %w", err)
	}
	body := strings.TrimLeft(rest[end+len("\n---\n"):], "\n")
	return fm, body, nil
}

// RenderVersion renders one record as a standalone markdown document.
func RenderVersion(rec core.VersionRecord) (string, error) {
	header, err := FrontmatterFor(rec).Render()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(header)
	writeVersionBody(&sb, rec, "#")
	return sb.String(), nil
}

// RenderHistory renders the latest version in full followed by a summary
// table of every version, newest first.
func RenderHistory(doc *core.HistoryDocument) (string, error) {
	latest, ok := doc.Latest()
	if !ok {
		return "# Market analysis\n\nNo versions recorded yet.\n", nil
	}

	fm := FrontmatterFor(latest)
	fm.Total = doc.Len()
	header, err := fm.Render()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(header)
	writeVersionBody(&sb, latest, "#")

	sb.WriteString("\n## History\n\n")
	sb.WriteString("| Version | Date | Tag | Headline |\n")
	sb.WriteString("|---|---|---|---|\n")
	summaries := doc.Summaries()
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		fmt.Fprintf(&sb, "| v%d | %s | %s | %s |\n",
			s.Version, s.CreatedAt.UTC().Format(core.TagDateLayout),
			escapeCell(s.Tag), escapeCell(s.Headline))
	}
	return sb.String(), nil
}

func writeVersionBody(sb *strings.Builder, rec core.VersionRecord, level string) {
	fmt.Fprintf(sb, "%s %s\n\n", level, rec.Headline)
	fmt.Fprintf(sb, "_Version %d · %s · %s_\n\n", rec.Version, rec.Tag, rec.Model)
	sb.WriteString(strings.TrimSpace(rec.Analysis))
	sb.WriteString("\n")

	if len(rec.Differences) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s# What changed\n\n", level)
	for _, d := range rec.Differences {
		fmt.Fprintf(sb, "- %s\n", d)
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
