package compose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/testutil"
)

func newTestComposer() *Composer {
	return NewComposer(WithComposerClock(testutil.Clock(testutil.FixedTime)))
}

func TestComposeAndAppend_FirstVersion(t *testing.T) {
	doc := core.NewHistoryDocument(testutil.FixedTime)

	rec, err := newTestComposer().ComposeAndAppend(doc, "just plain text, no JSON", "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, "2025-03-10", rec.Tag)
	assert.Equal(t, core.DefaultModel, rec.Model)
	assert.Equal(t, core.DefaultHeadline, rec.Headline)
	assert.Equal(t, "just plain text, no JSON", rec.Analysis)
	assert.Equal(t, []string{core.DiffFirstVersion}, rec.Differences)
	assert.True(t, rec.CreatedAt.Equal(testutil.FixedTime))

	require.Equal(t, 1, doc.Len())
	assert.Equal(t, core.DefaultHeadline, doc.LatestHeadline)
	assert.True(t, doc.UpdatedAt.Equal(testutil.FixedTime))
}

func TestComposeAndAppend_ExplicitDifferencesWin(t *testing.T) {
	doc := testutil.NewHistory(1)
	raw := "```json\n{\"headline\":\"H\",\"analysis\":\"body\",\"differences\":[\"x\"]}\n```"

	rec, err := newTestComposer().ComposeAndAppend(doc, raw, "weekly", "gemini-2.5-pro")
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Version)
	assert.Equal(t, "weekly", rec.Tag)
	assert.Equal(t, "gemini-2.5-pro", rec.Model)
	assert.Equal(t, "H", rec.Headline)
	assert.Equal(t, "body", rec.Analysis)
	assert.Equal(t, []string{"x"}, rec.Differences)
	assert.Equal(t, "H", doc.LatestHeadline)
}

func TestComposeAndAppend_SynthesizesAgainstPrevious(t *testing.T) {
	doc := core.NewHistoryDocument(testutil.FixedTime)
	c := newTestComposer()

	_, err := c.ComposeAndAppend(doc, `{"analysis":"A\nB"}`, "", "")
	require.NoError(t, err)
	rec, err := c.ComposeAndAppend(doc, `{"analysis":"A\nB\nC\nD\nE\nF\nG"}`, "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"New point: C", "New point: D", "New point: E", "New point: F", "New point: G",
	}, rec.Differences)

	rec, err = c.ComposeAndAppend(doc, `{"analysis":"A\nB\nC\nD\nE\nF\nG"}`, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{core.DiffNoChange}, rec.Differences)
}

func TestComposeAndAppend_VersionsAreSequential(t *testing.T) {
	doc := core.NewHistoryDocument(testutil.FixedTime)
	c := newTestComposer()

	for i := 0; i < 6; i++ {
		_, err := c.ComposeAndAppend(doc, "analysis text", "", "")
		require.NoError(t, err)
	}
	for i, v := range doc.Versions {
		assert.Equal(t, i+1, v.Version)
	}
}

func TestComposeAndAppend_DoesNotMutatePriorRecords(t *testing.T) {
	doc := testutil.NewHistory(2)
	before := doc.Clone()
	c := newTestComposer()

	rec, err := c.ComposeAndAppend(doc, `{"headline":"new","analysis":"fresh","differences":["d"]}`, "", "")
	require.NoError(t, err)

	// Mutating the returned record must not reach the stored one either.
	rec.Differences[0] = "tampered"

	assert.Equal(t, before.Versions, doc.Versions[:2])
	assert.Equal(t, []string{"d"}, doc.Versions[2].Differences)
}

func TestComposeAndAppend_EmptyResponseLeavesDocument(t *testing.T) {
	doc := testutil.NewHistory(1)

	_, err := newTestComposer().ComposeAndAppend(doc, "   \n", "", "")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatExtraction))

	raw, ok := core.RawResponse(err)
	assert.True(t, ok)
	assert.Equal(t, "   \n", raw)
	assert.Equal(t, 1, doc.Len())
}

func TestDefaultTag(t *testing.T) {
	now := time.Date(2025, 12, 31, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "2026-01-01", DefaultTag("", now))
	assert.Equal(t, "2026-01-01", DefaultTag("   ", now))
	assert.Equal(t, "custom", DefaultTag(" custom ", now))
}
