// Package prompt renders the prompts sent to the model from embedded
// templates.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// Renderer renders prompts from templates.
type Renderer struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewRenderer creates a renderer with every embedded template parsed.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
	}

	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return r, nil
}

func (r *Renderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		name := strings.TrimSuffix(strings.TrimPrefix(path, "prompts/"), ".md.tmpl")
		tmpl, err := template.New(name).Funcs(templateFuncs()).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		r.templates[name] = tmpl
		return nil
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      strings.Join,
		"indent":    indent,
		"trimSpace": strings.TrimSpace,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
	}
}

func indent(spaces int, s string) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// AnalysisParams contains parameters for the analysis prompt.
type AnalysisParams struct {
	Date              string
	Context           string
	HasPrevious       bool
	PreviousVersion   int
	PreviousHeadline  string
	PreviousAnalysis  string
	PreviousCreatedAt string
	MaxDifferences    int
}

// NewAnalysisParams fills the parameters for a run on date. An empty context
// becomes the explicit no-context sentinel; prev may be nil.
func NewAnalysisParams(date time.Time, context string, prev *core.VersionRecord) AnalysisParams {
	p := AnalysisParams{
		Date:           date.UTC().Format(core.TagDateLayout),
		Context:        context,
		MaxDifferences: core.MaxSynthesizedDifferences,
	}
	if strings.TrimSpace(p.Context) == "" {
		p.Context = core.NoContextSentinel
	}
	if prev != nil {
		p.HasPrevious = true
		p.PreviousVersion = prev.Version
		p.PreviousHeadline = prev.Headline
		p.PreviousAnalysis = prev.Analysis
		p.PreviousCreatedAt = prev.CreatedAt.UTC().Format(time.RFC3339)
	}
	return p
}

// RenderAnalysis renders the user prompt for one generation.
func (r *Renderer) RenderAnalysis(params AnalysisParams) (string, error) {
	return r.render("analysis", params)
}

// SystemParams contains parameters for the system prompt.
type SystemParams struct {
	WebSearch bool
}

// RenderSystem renders the system prompt.
func (r *Renderer) RenderSystem(params SystemParams) (string, error) {
	return r.render("system", params)
}

func (r *Renderer) render(name string, data interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// ListTemplates returns available template names, sorted.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
