package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
}

func fallbackItems() []item { return []item{{Index: -1, Category: "fallback"}} }

func TestParseOr_StrictArray(t *testing.T) {
	got, ok := ParseOr(`[{"index":0,"category":"federal"}]`, fallbackItems)
	assert.True(t, ok)
	assert.Equal(t, []item{{Index: 0, Category: "federal"}}, got)
}

func TestParseOr_FencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n[{\"index\":1,\"category\":\"state\"}]\n```\nLet me know."
	got, ok := ParseOr(text, fallbackItems)
	assert.True(t, ok)
	assert.Equal(t, "state", got[0].Category)
}

func TestParseOr_EmbeddedArray(t *testing.T) {
	text := `The classification is [{"index":2,"category":"city"}] as requested.`
	got, ok := ParseOr(text, fallbackItems)
	assert.True(t, ok)
	assert.Equal(t, 2, got[0].Index)
}

func TestParseOr_ObjectInsideProse(t *testing.T) {
	type resp struct {
		Keep []int `json:"keep"`
	}
	got, ok := ParseOr(`Sure! {"keep": [0, 2]} Hope that helps.`, func() resp { return resp{} })
	assert.True(t, ok)
	assert.Equal(t, []int{0, 2}, got.Keep)
}

func TestParseOr_CommentsAndTrailingCommas(t *testing.T) {
	text := "[\n  {\"index\": 0, \"category\": \"federal\"}, // irs.gov\n  {\"index\": 1, \"category\": \"state\"},\n]"
	got, ok := ParseOr(text, fallbackItems)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestParseOr_URLInStringNotTreatedAsComment(t *testing.T) {
	type page struct {
		URL string `json:"url"`
	}
	got, ok := ParseOr(`{"url": "https://www.irs.gov/ein",}`, func() page { return page{} })
	require.True(t, ok)
	assert.Equal(t, "https://www.irs.gov/ein", got.URL)
}

func TestParseOr_Fallback(t *testing.T) {
	for _, text := range []string{"", "I cannot help with that.", "[not json", `{"index": "zero"}`} {
		got, ok := ParseOr(text, fallbackItems)
		assert.False(t, ok, text)
		assert.Equal(t, fallbackItems(), got)
	}
}

func TestParse_Error(t *testing.T) {
	_, err := Parse[[]item]("nothing here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestClean(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, Clean(`{"a": 1,}`))
	assert.Equal(t, "[1,\n2]", Clean("[1, // one\n2,]"))
}
