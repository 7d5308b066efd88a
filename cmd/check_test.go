package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/model"
)

func sampleResult() *model.Result {
	return &model.Result{
		RunID:   "run-42",
		Profile: model.BusinessProfile{State: "CA", Industry: "retail"},
		Requirements: []model.Requirement{
			{Name: "Seller's Permit", SourceType: model.JurisdictionState},
		},
		Coverage: model.CoverageReport{OverallScore: 55.5, RiskLevel: model.RiskHigh},
	}
}

func TestWriteOutput_Stdout(t *testing.T) {
	for _, path := range []string{"", "-"} {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, path, sampleResult()))

		var got model.Result
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "run-42", got.RunID)
		assert.Len(t, got.Requirements, 1)
		assert.Contains(t, buf.String(), "\n  \"run_id\"")
	}
}

func TestWriteOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	var stdout bytes.Buffer
	require.NoError(t, writeOutput(&stdout, path, sampleResult()))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.Result
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, model.RiskHigh, got.Coverage.RiskLevel)
}

func TestWriteOutput_BadPath(t *testing.T) {
	err := writeOutput(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing", "result.json"), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}
