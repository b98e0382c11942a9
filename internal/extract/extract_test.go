package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

func TestExtract_FencedJSON(t *testing.T) {
	raw := "```json\n{\"headline\":\"H\",\"analysis\":\"body\",\"differences\":[\"x\"]}\n```"

	got, err := Extract(raw)
	require.NoError(t, err)

	assert.Equal(t, core.ExtractionStructured, got.Kind)
	assert.Equal(t, core.Payload{Headline: "H", Analysis: "body", Differences: []string{"x"}}, got.Payload)
	assert.False(t, got.AnalysisFallback)
}

func TestExtract_PlainText(t *testing.T) {
	raw := "just plain text, no JSON"

	got, err := Extract(raw)
	require.NoError(t, err)

	assert.Equal(t, core.ExtractionRawText, got.Kind)
	assert.Equal(t, raw, got.Payload.Analysis)
	assert.Nil(t, got.Payload.Differences)
	assert.Empty(t, got.Payload.Headline)
	assert.False(t, got.HasDifferences())
}

func TestExtract_DirectJSON(t *testing.T) {
	raw := `  {"headline": " Rates hold ", "analysis": "Fed paused."}  `

	got, err := Extract(raw)
	require.NoError(t, err)

	assert.True(t, got.Structured())
	assert.Equal(t, "Rates hold", got.Payload.Headline)
	assert.Equal(t, "Fed paused.", got.Payload.Analysis)
	assert.Nil(t, got.Payload.Differences)
}

func TestExtract_GenericFence(t *testing.T) {
	raw := "Here is the result:\n```\n{\"analysis\":\"inside generic fence\"}\n```\nThanks."

	got, err := Extract(raw)
	require.NoError(t, err)
	assert.True(t, got.Structured())
	assert.Equal(t, "inside generic fence", got.Payload.Analysis)
}

func TestExtract_SkipsNonJSONFence(t *testing.T) {
	raw := "```python\nprint('hi')\n```\nthen\n```json\n{\"analysis\":\"second block\"}\n```"

	got, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "second block", got.Payload.Analysis)
}

func TestExtract_ObjectInsideProse(t *testing.T) {
	raw := `Sure! {"headline":"H","analysis":"has a } brace in \"quotes\""} Hope this helps.`

	got, err := Extract(raw)
	require.NoError(t, err)
	assert.True(t, got.Structured())
	assert.Equal(t, `has a } brace in "quotes"`, got.Payload.Analysis)
}

func TestExtract_MissingAnalysisFallsBackToRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing", `{"headline":"only a headline"}`},
		{"blank", `{"headline":"h","analysis":"   "}`},
		{"wrong type", `{"headline":"h","analysis":{"nested":true}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			require.NoError(t, err)
			assert.True(t, got.Structured())
			assert.True(t, got.AnalysisFallback)
			assert.Equal(t, tt.raw, got.Payload.Analysis)
		})
	}
}

func TestExtract_DifferencesShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"list", `{"analysis":"a","differences":["one"," two "]}`, []string{"one", "two"}},
		{"single string", `{"analysis":"a","differences":"only"}`, []string{"only"}},
		{"empty list", `{"analysis":"a","differences":[]}`, nil},
		{"blank items", `{"analysis":"a","differences":["", "  "]}`, nil},
		{"scalars", `{"analysis":"a","differences":[3.5, true, {"x":1}]}`, []string{"3.5", "true"}},
		{"null", `{"analysis":"a","differences":null}`, nil},
		{"wrong type", `{"analysis":"a","differences":42}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Payload.Differences)
		})
	}
}

func TestExtract_EmptyResponseIsError(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t\n"} {
		_, err := Extract(raw)
		require.Error(t, err)
		assert.True(t, core.IsCategory(err, core.ErrCatExtraction))

		got, ok := core.RawResponse(err)
		require.True(t, ok)
		assert.Equal(t, raw, got)
	}
}

func TestExtract_JSONArrayIsNotAnObject(t *testing.T) {
	raw := `["a", "b"]`

	got, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, core.ExtractionRawText, got.Kind)
	assert.Equal(t, raw, got.Payload.Analysis)
}

func TestBalancedObjectAt(t *testing.T) {
	assert.Equal(t, "", balancedObjectAt("{unterminated", 0))
	assert.Equal(t, `{"a":{"b":1}}`, balancedObjectAt(`x {"a":{"b":1}} y {"c":2}`, 2))
	assert.Equal(t, `{"c":2}`, balancedObjectAt(`x {"a":{"b":1}} y {"c":2}`, 18))
}

func TestExtract_SkipsBracesThatAreNotJSON(t *testing.T) {
	raw := `Scenario {base case}: {"headline":"H","analysis":"real body"} and {tail}`

	got, err := Extract(raw)
	require.NoError(t, err)
	assert.True(t, got.Structured())
	assert.Equal(t, "H", got.Payload.Headline)
	assert.Equal(t, "real body", got.Payload.Analysis)
}
