package core

// ExtractionKind tags which branch produced an Extraction.
type ExtractionKind string

const (
	// ExtractionStructured means a JSON object was found and decoded.
	ExtractionStructured ExtractionKind = "structured"
	// ExtractionRawText means no JSON was found and the whole response is the analysis.
	ExtractionRawText ExtractionKind = "raw_text"
)

// Payload is the typed content of one model response.
// An empty Headline means absent; a nil Differences means absent.
type Payload struct {
	Headline    string   `json:"headline,omitempty"`
	Analysis    string   `json:"analysis"`
	Differences []string `json:"differences,omitempty"`
}

// Extraction is the tagged result of parsing a model response.
type Extraction struct {
	Kind    ExtractionKind
	Payload Payload
	// AnalysisFallback is set when a structured object had no usable
	// analysis field and the raw text was used instead.
	AnalysisFallback bool
}

// Structured reports whether the structured branch produced this result.
func (e Extraction) Structured() bool {
	return e.Kind == ExtractionStructured
}

// HasDifferences reports whether the model supplied its own difference list.
func (e Extraction) HasDifferences() bool {
	return len(e.Payload.Differences) > 0
}
