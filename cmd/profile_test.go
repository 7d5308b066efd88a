package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/model"
)

func parseProfile(t *testing.T, args ...string) (model.BusinessProfile, error) {
	t.Helper()
	var f profileFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return f.profile(cmd)
}

func TestProfileFlags(t *testing.T) {
	p, err := parseProfile(t,
		"--state", "CA",
		"--city", "San Francisco",
		"--industry", "restaurant",
		"--employees", "20",
		"--revenue", "1500000",
		"--factor", "serves alcohol",
		"--factor", "outdoor seating",
		"--physical-location",
	)
	require.NoError(t, err)

	assert.Equal(t, "CA", p.State)
	assert.Equal(t, "San Francisco", p.City)
	assert.Equal(t, "restaurant", p.Industry)
	assert.Equal(t, 20, p.EmployeeCount)
	require.NotNil(t, p.AnnualRevenue)
	assert.InDelta(t, 1500000, *p.AnnualRevenue, 0.1)
	assert.Equal(t, []string{"serves alcohol", "outdoor seating"}, p.SpecialFactors)
	require.NotNil(t, p.HasPhysicalLocation)
	assert.True(t, *p.HasPhysicalLocation)
}

func TestProfileFlags_UnsetOptionalsStayNil(t *testing.T) {
	p, err := parseProfile(t, "--state", "TX", "--industry", "construction")
	require.NoError(t, err)
	assert.Nil(t, p.AnnualRevenue)
	assert.Nil(t, p.HasPhysicalLocation)
	assert.Zero(t, p.EmployeeCount)
}

func TestProfileFlags_FileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
state: New York
city: Buffalo
industry: healthcare
employee_count: 60
annual_revenue: 2500000
has_physical_location: true
special_factors:
  - handles patient records
`), 0o644))

	p, err := parseProfile(t, "--profile", path, "--employees", "75")
	require.NoError(t, err)
	assert.Equal(t, "New York", p.State)
	assert.Equal(t, "Buffalo", p.City)
	assert.Equal(t, "healthcare", p.Industry)
	assert.Equal(t, 75, p.EmployeeCount)
	require.NotNil(t, p.AnnualRevenue)
	assert.InDelta(t, 2500000, *p.AnnualRevenue, 0.1)
	assert.Equal(t, []string{"handles patient records"}, p.SpecialFactors)
}

func TestProfileFlags_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"state": "CA", "industry": "retail", "employee_count": 5}`), 0o644))

	p, err := parseProfile(t, "--profile", path)
	require.NoError(t, err)
	assert.Equal(t, 5, p.EmployeeCount)
}

func TestProfileFlags_Errors(t *testing.T) {
	_, err := parseProfile(t, "--industry", "retail")
	assert.Error(t, err)

	_, err = parseProfile(t, "--profile", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read profile")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("state: [unclosed"), 0o644))
	_, err = parseProfile(t, "--profile", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profile")
}
