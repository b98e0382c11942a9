package core

import (
	"context"
)

// HistoryStore persists the history document.
type HistoryStore interface {
	// Load returns the current document. A missing or structurally invalid
	// document yields a fresh empty one, not an error.
	Load(ctx context.Context) (*HistoryDocument, error)

	// Save overwrites the persisted document as a whole.
	// A store never leaves a partially written document behind.
	Save(ctx context.Context, doc *HistoryDocument) error

	// Location describes where the document lives (a path or DSN).
	Location() string
}

// HistoryLocker is implemented by stores that guard a run with an exclusive lock.
type HistoryLocker interface {
	AcquireLock(ctx context.Context) error
	ReleaseLock(ctx context.Context) error
}

// GenerateRequest is one generation call to a model client.
type GenerateRequest struct {
	Model  string
	System string
	Prompt string
}

// ModelClient sends a prompt to a language model and returns its raw text.
// Implementations map failures onto the error taxonomy: configuration
// problems as config errors, everything on the wire as transport or timeout.
type ModelClient interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
