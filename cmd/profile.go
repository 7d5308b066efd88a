package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/compliance-cli/internal/model"
)

// profileFlags binds a business profile to command flags. Flags that are
// set override values loaded from --profile.
type profileFlags struct {
	file      string
	state     string
	city      string
	industry  string
	naics     string
	employees int
	revenue   float64
	factors   []string
	physical  bool
}

func (f *profileFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.file, "profile", "", "YAML or JSON business profile file")
	fs.StringVar(&f.state, "state", "", "state name or two-letter code")
	fs.StringVar(&f.city, "city", "", "city")
	fs.StringVar(&f.industry, "industry", "", "industry (e.g. restaurant, construction)")
	fs.StringVar(&f.naics, "naics", "", "NAICS code")
	fs.IntVar(&f.employees, "employees", 0, "employee count")
	fs.Float64Var(&f.revenue, "revenue", 0, "annual revenue in USD")
	fs.StringSliceVar(&f.factors, "factor", nil, "special factor (repeatable)")
	fs.BoolVar(&f.physical, "physical-location", false, "business has a physical location")
}

func (f *profileFlags) profile(cmd *cobra.Command) (model.BusinessProfile, error) {
	var p model.BusinessProfile
	if f.file != "" {
		loaded, err := loadProfile(f.file)
		if err != nil {
			return p, err
		}
		p = loaded
	}

	fs := cmd.Flags()
	if fs.Changed("state") {
		p.State = f.state
	}
	if fs.Changed("city") {
		p.City = f.city
	}
	if fs.Changed("industry") {
		p.Industry = f.industry
	}
	if fs.Changed("naics") {
		p.NAICSCode = f.naics
	}
	if fs.Changed("employees") {
		p.EmployeeCount = f.employees
	}
	if fs.Changed("revenue") {
		p.AnnualRevenue = model.Float64(f.revenue)
	}
	if fs.Changed("factor") {
		p.SpecialFactors = f.factors
	}
	if fs.Changed("physical-location") {
		p.HasPhysicalLocation = model.Bool(f.physical)
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func loadProfile(path string) (model.BusinessProfile, error) {
	var p model.BusinessProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, eris.Wrapf(err, "read profile %s", path)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, eris.Wrapf(err, "parse profile %s", path)
	}
	return p, nil
}
