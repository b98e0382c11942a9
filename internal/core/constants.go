// Package core holds the history domain: documents, version records, the
// extraction result type, the ports other packages implement, and the error
// taxonomy.
package core

// Provider identifiers
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ValidProviders is a map for O(1) provider validation. The empty string
// means "detect from the model name".
var ValidProviders = map[string]bool{
	"":                true,
	ProviderAnthropic: true,
	ProviderGemini:    true,
}

// DefaultModel is used when a run does not name a model.
const DefaultModel = "claude-sonnet-4-20250514"

// NoContextSentinel is forwarded into the prompt when a run supplies no context.
const NoContextSentinel = "No additional context provided."

// DefaultHeadline is assigned when the model response carries no headline.
const DefaultHeadline = "Market analysis update"

// TagDateLayout formats the default tag of a run.
const TagDateLayout = "2006-01-02"

// Synthesized difference statements.
const (
	MaxSynthesizedDifferences = 5
	MaxDifferenceLength       = 180

	DiffFirstVersion = "First recorded version: no previous analysis to compare against."
	DiffNoChange     = "No material change since the previous version."
	DiffEvolvedOnly  = "Analysis text evolved without new key points."
	DiffNewPointFmt  = "New point: %s"
)
