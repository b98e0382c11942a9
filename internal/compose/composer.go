// Package compose assembles new version records and drives a full
// generation run against the history.
package compose

import (
	"log/slog"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/diff"
	"github.com/hugo-lorenzo-mato/marketlog/internal/extract"
)

// Composer turns a raw model response into the next version record.
type Composer struct {
	now    func() time.Time
	logger *slog.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithComposerClock overrides the time source for createdAt and default tags.
func WithComposerClock(now func() time.Time) ComposerOption {
	return func(c *Composer) {
		c.now = now
	}
}

// WithComposerLogger sets the logger.
func WithComposerLogger(logger *slog.Logger) ComposerOption {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewComposer creates a composer.
func NewComposer(opts ...ComposerOption) *Composer {
	c := &Composer{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComposeAndAppend extracts the payload from raw, fills in differences,
// headline and tag when absent, and appends the record to doc. doc is
// mutated in place; persisting it is the caller's job. On error doc is left
// unchanged.
func (c *Composer) ComposeAndAppend(doc *core.HistoryDocument, raw, tag, model string) (core.VersionRecord, error) {
	ext, err := extract.Extract(raw)
	if err != nil {
		return core.VersionRecord{}, err
	}
	if !ext.Structured() {
		c.logger.Warn("model response had no JSON object, using raw text as analysis")
	} else if ext.AnalysisFallback {
		c.logger.Warn("model response had no analysis field, using raw text as analysis")
	}

	previous := ""
	if last, ok := doc.Latest(); ok {
		previous = last.Analysis
	}

	differences := ext.Payload.Differences
	if !ext.HasDifferences() {
		differences = diff.Synthesize(ext.Payload.Analysis, previous)
	}

	now := c.now()
	rec := core.VersionRecord{
		Version:     doc.NextVersion(),
		Tag:         DefaultTag(tag, now),
		Model:       DefaultModel(model),
		CreatedAt:   now,
		Headline:    ext.Payload.Headline,
		Analysis:    ext.Payload.Analysis,
		Differences: differences,
	}
	if rec.Headline == "" {
		rec.Headline = core.DefaultHeadline
	}

	doc.Append(rec, now)
	return rec.Clone(), nil
}

// DefaultTag returns tag, or the UTC date of now when tag is blank.
func DefaultTag(tag string, now time.Time) string {
	if t := strings.TrimSpace(tag); t != "" {
		return t
	}
	return now.UTC().Format(core.TagDateLayout)
}

// DefaultModel returns model, or the documented default when blank.
func DefaultModel(model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return core.DefaultModel
}
