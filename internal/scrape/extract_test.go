package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/model"
)

var sfRef = pageRef{URL: "https://sf.gov/register-your-business", Title: "Register your business", Category: model.JurisdictionCity}

func TestDecodeStructured(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"requirements": [
		{"name": "Business Registration Certificate", "agency": "Office of the Treasurer and Tax Collector",
		 "deadline": "Within 15 days of starting business", "frequency": "annual", "penalty": "Up to 25% of the fee"},
		{"name": "  Health Permit ", "description": "Required for food facilities", "applies_to": "food service", "citation": "SF Health Code Art. 8"}
	]}`)

	reqs, err := decodeStructured(raw, sfRef)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	r := reqs[0]
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "Business Registration Certificate", r.Name)
	assert.Equal(t, "Office of the Treasurer and Tax Collector", r.Source)
	assert.Equal(t, sfRef.URL, r.SourceURL)
	assert.Equal(t, model.JurisdictionCity, r.SourceType)
	assert.Equal(t, model.ConfidenceMedium, r.ConfidenceLevel)
	assert.Equal(t, "annual", r.Frequency)
	assert.Equal(t, "schema", r.Metadata.Extraction)
	assert.Equal(t, model.JurisdictionCity, r.Metadata.Jurisdiction)
	assert.False(t, r.Verified)

	assert.Equal(t, "Health Permit", reqs[1].Name)
	assert.Equal(t, "Register your business", reqs[1].Source)
	assert.Equal(t, "food service", reqs[1].AppliesCondition)
	assert.Equal(t, "SF Health Code Art. 8", reqs[1].Citation)
	assert.NotEqual(t, reqs[0].ID, reqs[1].ID)
}

func TestDecodeStructured_BareArray(t *testing.T) {
	t.Parallel()
	reqs, err := decodeStructured([]byte(`[{"name": "Seller's Permit", "form_number": "CDTFA-400-MIPS"}]`), sfRef)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "CDTFA-400-MIPS", reqs[0].FormNumber)
}

func TestDecodeStructured_Rejects(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"missing name":  `{"requirements": [{"description": "no name"}]}`,
		"empty name":    `{"requirements": [{"name": ""}]}`,
		"wrong type":    `{"requirements": [{"name": 42}]}`,
		"no list":       `{"items": []}`,
		"not json":      `requirements: none`,
		"list not list": `{"requirements": "none"}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			reqs, err := decodeStructured([]byte(raw), sfRef)
			assert.Error(t, err)
			assert.Empty(t, reqs)
		})
	}
}

func TestDecodeStructured_Empty(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "  ", "null", `{"requirements": []}`} {
		reqs, err := decodeStructured([]byte(raw), sfRef)
		require.NoError(t, err)
		assert.Empty(t, reqs)
	}
}

func TestRequirementSchema(t *testing.T) {
	t.Parallel()
	s := RequirementSchema()
	assert.Equal(t, "object", s["type"])
	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "requirements")

	// Each call returns an independent copy.
	s["type"] = "mutated"
	assert.Equal(t, "object", RequirementSchema()["type"])
}

func TestExtractionPrompt(t *testing.T) {
	t.Parallel()
	p := model.BusinessProfile{State: "CA", City: "San Francisco", Industry: "Restaurant", NAICSCode: "722511", EmployeeCount: 15}
	prompt := ExtractionPrompt(p)
	assert.Contains(t, prompt, "Restaurant business (NAICS 722511) with 15 employees located in San Francisco, California.")
	assert.Contains(t, prompt, "states other than California")
	assert.Contains(t, prompt, "Leave a field empty rather than guessing")
}

func TestPageRefSource(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Title", pageRef{URL: "https://www.irs.gov/x", Title: "Title"}.source())
	assert.Equal(t, "irs.gov", pageRef{URL: "https://www.irs.gov/x"}.source())
	assert.Equal(t, "not a url", pageRef{URL: "not a url"}.source())
}
