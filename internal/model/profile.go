package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// BusinessProfile describes the business a compliance check runs for. It is
// treated as immutable once a run starts.
type BusinessProfile struct {
	State               string   `json:"state" yaml:"state"`
	City                string   `json:"city,omitempty" yaml:"city"`
	Industry            string   `json:"industry" yaml:"industry"`
	NAICSCode           string   `json:"naics_code,omitempty" yaml:"naics_code"`
	EmployeeCount       int      `json:"employee_count" yaml:"employee_count"`
	AnnualRevenue       *float64 `json:"annual_revenue,omitempty" yaml:"annual_revenue"`
	SpecialFactors      []string `json:"special_factors,omitempty" yaml:"special_factors"`
	HasPhysicalLocation *bool    `json:"has_physical_location,omitempty" yaml:"has_physical_location"`
}

// Validate checks the fields every pipeline stage relies on.
func (p BusinessProfile) Validate() error {
	if strings.TrimSpace(p.State) == "" {
		return eris.New("profile: state is required")
	}
	if strings.TrimSpace(p.Industry) == "" {
		return eris.New("profile: industry is required")
	}
	if p.EmployeeCount < 0 {
		return eris.Errorf("profile: employee count must be >= 0, got %d", p.EmployeeCount)
	}
	if p.AnnualRevenue != nil && *p.AnnualRevenue < 0 {
		return eris.New("profile: annual revenue must be >= 0")
	}
	return nil
}

// StateName returns the full state name, resolving two-letter abbreviations.
func (p BusinessProfile) StateName() string {
	if name, ok := StateName(p.State); ok {
		return name
	}
	return strings.TrimSpace(p.State)
}

// StateCode returns the lowercase two-letter postal code for the profile's
// state, or "" when the state is not recognized.
func (p BusinessProfile) StateCode() string {
	code, _ := StateAbbrev(p.State)
	return strings.ToLower(code)
}

// Location renders "City, State" or just the state.
func (p BusinessProfile) Location() string {
	if strings.TrimSpace(p.City) == "" {
		return p.StateName()
	}
	return strings.TrimSpace(p.City) + ", " + p.StateName()
}

// Revenue returns the annual revenue or 0 when unknown.
func (p BusinessProfile) Revenue() float64 {
	if p.AnnualRevenue == nil {
		return 0
	}
	return *p.AnnualRevenue
}

// Float64 is a convenience for building profiles with an optional revenue.
func Float64(v float64) *float64 { return &v }

// Bool is a convenience for optional boolean fields.
func Bool(v bool) *bool { return &v }
