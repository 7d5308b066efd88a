package model

import "strings"

// Priority is the importance a knowledge-base entry assigns to a requirement.
type Priority string

const (
	PriorityCritical    Priority = "critical"
	PriorityRequired    Priority = "required"
	PriorityRecommended Priority = "recommended"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityRequired, PriorityRecommended:
		return true
	}
	return false
}

// Conditions gate when a knowledge-base entry applies. Every defined field
// must be satisfied; nil or empty fields always pass.
type Conditions struct {
	MinEmployees        *int     `json:"min_employees,omitempty" yaml:"min_employees"`
	MaxEmployees        *int     `json:"max_employees,omitempty" yaml:"max_employees"`
	Industry            []string `json:"industry,omitempty" yaml:"industry"`
	State               string   `json:"state,omitempty" yaml:"state"`
	Revenue             *float64 `json:"revenue,omitempty" yaml:"revenue"`
	HasPhysicalLocation *bool    `json:"has_physical_location,omitempty" yaml:"has_physical_location"`
	// Expr is an optional CEL expression over the profile.
	Expr string `json:"expr,omitempty" yaml:"expr"`
}

// Describe renders the defined conditions as short human-readable notes.
func (c Conditions) Describe() []string {
	var out []string
	if c.MinEmployees != nil {
		out = append(out, "employees >= "+itoa(*c.MinEmployees))
	}
	if c.MaxEmployees != nil {
		out = append(out, "employees <= "+itoa(*c.MaxEmployees))
	}
	if len(c.Industry) > 0 {
		out = append(out, "industry: "+strings.Join(c.Industry, ", "))
	}
	if c.State != "" {
		out = append(out, "state: "+c.State)
	}
	if c.Revenue != nil {
		out = append(out, "revenue >= "+ftoa(*c.Revenue))
	}
	if c.HasPhysicalLocation != nil && *c.HasPhysicalLocation {
		out = append(out, "has physical location")
	}
	if c.Expr != "" {
		out = append(out, c.Expr)
	}
	return out
}

// KnowledgeBaseEntry is a curated, expected compliance obligation.
type KnowledgeBaseEntry struct {
	ID            string     `json:"id" yaml:"id"`
	Category      string     `json:"category" yaml:"category"` // federal, state, local, industry
	Requirement   string     `json:"requirement" yaml:"requirement"`
	Conditions    Conditions `json:"conditions" yaml:"conditions"`
	Priority      Priority   `json:"priority" yaml:"priority"`
	Citation      string     `json:"citation,omitempty" yaml:"citation"`
	Penalty       string     `json:"penalty,omitempty" yaml:"penalty"`
	Description   string     `json:"description" yaml:"description"`
	SearchIntents []string   `json:"search_intents,omitempty" yaml:"search_intents"`
}

// Jurisdiction maps the entry's catalog category onto a jurisdiction.
func (e KnowledgeBaseEntry) Jurisdiction() Jurisdiction {
	if j, ok := ParseJurisdiction(e.Category); ok {
		return j
	}
	return JurisdictionIndustry
}
