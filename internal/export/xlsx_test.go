package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/compliance-cli/internal/model"
)

func sampleResult() *model.Result {
	return &model.Result{
		RunID: "run-1",
		Requirements: []model.Requirement{
			{Name: "Employer Identification Number", SourceType: model.JurisdictionFederal, FormNumber: "SS-4", Source: "IRS", ConfidenceLevel: model.ConfidenceMedium},
			{Name: "Seller's Permit", SourceType: model.JurisdictionState, Deadline: "Before first sale", Metadata: model.RequirementMetadata{Extraction: "regex"}},
		},
		Gaps: []model.GapAnalysis{
			{Severity: model.SeverityHigh, Category: "federal", Requirement: "ADA Compliance", ApplicableConditions: []string{"employees >= 15", "has physical location"}},
		},
		Coverage: model.CoverageReport{
			Jurisdictions: map[model.Jurisdiction]model.JurisdictionCoverage{
				model.JurisdictionFederal: {Found: 1, Expected: 4, Percentage: 25},
			},
			OverallScore: 17.5,
			RiskLevel:    model.RiskCritical,
		},
		Recommendations: []model.Recommendation{{Priority: model.SeverityHigh, Action: "Confirm compliance with ADA Compliance"}},
		Statistics:      model.Statistics{Total: 2, Federal: 1, State: 1},
	}
}

func rowStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, SaveXLSX(path, sampleResult()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 4)
	assert.Equal(t, SheetRequirements, f.Sheets[0].Name)
	assert.Equal(t, SheetRecommendations, f.Sheets[3].Name)

	reqs := f.Sheet[SheetRequirements]
	require.Len(t, reqs.Rows, 3)
	assert.Equal(t, requirementHeader, rowStrings(reqs.Rows[0]))
	assert.Equal(t, []string{"federal", "Employer Identification Number", "SS-4", "IRS"}, rowStrings(reqs.Rows[1])[:4])
	assert.Equal(t, "regex", rowStrings(reqs.Rows[2])[9])

	gaps := f.Sheet[SheetGaps]
	require.Len(t, gaps.Rows, 2)
	assert.Equal(t, "employees >= 15; has physical location", rowStrings(gaps.Rows[1])[4])

	cov := f.Sheet[SheetCoverage]
	require.GreaterOrEqual(t, len(cov.Rows), 5)
	assert.Equal(t, "federal", cov.Rows[1].Cells[0].String())
	found, err := cov.Rows[1].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 1, found)

	var labels []string
	for _, row := range cov.Rows {
		if len(row.Cells) > 0 {
			labels = append(labels, row.Cells[0].String())
		}
	}
	assert.Contains(t, labels, "Risk level")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResult()))
	assert.NotZero(t, buf.Len())

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 4)
}

func TestWriteXLSX_NilResult(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteXLSX(&buf, nil))
}
