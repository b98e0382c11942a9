package core

import (
	"time"
)

// VersionRecord is one immutable, numbered snapshot of an analysis.
type VersionRecord struct {
	Version     int       `json:"version"`
	Tag         string    `json:"tag"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"createdAt"`
	Headline    string    `json:"headline"`
	Analysis    string    `json:"analysis"`
	Differences []string  `json:"differences"`
}

// Clone returns a deep copy of the record.
func (r VersionRecord) Clone() VersionRecord {
	c := r
	if r.Differences != nil {
		c.Differences = append([]string(nil), r.Differences...)
	}
	return c
}

// VersionSummary is the list view of a record, without the analysis body.
type VersionSummary struct {
	Version         int       `json:"version"`
	Tag             string    `json:"tag"`
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"createdAt"`
	Headline        string    `json:"headline"`
	DifferenceCount int       `json:"differenceCount"`
}

// HistoryDocument is the full ordered collection of version records plus
// summary metadata. Versions are in chronological order and append-only.
type HistoryDocument struct {
	UpdatedAt      time.Time       `json:"updatedAt"`
	LatestHeadline string          `json:"latestHeadline"`
	Versions       []VersionRecord `json:"versions"`
}

// NewHistoryDocument returns an empty document stamped with now.
func NewHistoryDocument(now time.Time) *HistoryDocument {
	return &HistoryDocument{
		UpdatedAt: now,
		Versions:  []VersionRecord{},
	}
}

// Len returns the number of versions.
func (d *HistoryDocument) Len() int {
	return len(d.Versions)
}

// NextVersion returns the number the next appended record must carry.
func (d *HistoryDocument) NextVersion() int {
	return len(d.Versions) + 1
}

// Latest returns a copy of the most recent record.
func (d *HistoryDocument) Latest() (VersionRecord, bool) {
	if len(d.Versions) == 0 {
		return VersionRecord{}, false
	}
	return d.Versions[len(d.Versions)-1].Clone(), true
}

// Version returns a copy of the record with the given 1-based number.
func (d *HistoryDocument) Version(n int) (VersionRecord, bool) {
	if n < 1 || n > len(d.Versions) {
		return VersionRecord{}, false
	}
	return d.Versions[n-1].Clone(), true
}

// Append adds rec to the end of the history and refreshes the denormalized
// fields. The record is copied so later changes by the caller cannot reach
// the stored one.
func (d *HistoryDocument) Append(rec VersionRecord, now time.Time) {
	if d.Versions == nil {
		d.Versions = []VersionRecord{}
	}
	// Full slice expression forces a fresh backing array when capacity is
	// shared with a slice handed out earlier.
	d.Versions = append(d.Versions[:len(d.Versions):len(d.Versions)], rec.Clone())
	d.UpdatedAt = now
	d.LatestHeadline = rec.Headline
}

// Summaries returns list views of every version, oldest first.
func (d *HistoryDocument) Summaries() []VersionSummary {
	out := make([]VersionSummary, 0, len(d.Versions))
	for _, v := range d.Versions {
		out = append(out, VersionSummary{
			Version:         v.Version,
			Tag:             v.Tag,
			Model:           v.Model,
			CreatedAt:       v.CreatedAt,
			Headline:        v.Headline,
			DifferenceCount: len(v.Differences),
		})
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *HistoryDocument) Clone() *HistoryDocument {
	c := &HistoryDocument{
		UpdatedAt:      d.UpdatedAt,
		LatestHeadline: d.LatestHeadline,
		Versions:       make([]VersionRecord, len(d.Versions)),
	}
	for i, v := range d.Versions {
		c.Versions[i] = v.Clone()
	}
	return c
}

// Normalize makes the document safe to serialize: versions is never null.
func (d *HistoryDocument) Normalize() {
	if d.Versions == nil {
		d.Versions = []VersionRecord{}
	}
	for i := range d.Versions {
		if d.Versions[i].Differences == nil {
			d.Versions[i].Differences = []string{}
		}
	}
}
