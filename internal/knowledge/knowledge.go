// Package knowledge holds the curated catalog of expected compliance
// obligations and the applicability filter that selects entries for a
// business profile. A Base is immutable after Load and safe to share across
// concurrent runs.
package knowledge

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/textutil"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type catalogFile struct {
	Entries []model.KnowledgeBaseEntry `yaml:"entries"`
}

// Base is a loaded, validated catalog.
type Base struct {
	entries []model.KnowledgeBaseEntry
	byID    map[string]int
	exprs   *exprSet
}

// Default loads the catalog compiled into the binary.
func Default() (*Base, error) {
	return Load(embeddedCatalog)
}

// LoadFile loads a catalog from path, or the embedded catalog when path is empty.
func LoadFile(path string) (*Base, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "knowledge: read %s", path)
	}
	return Load(data)
}

// Load parses and validates a YAML catalog. Validation fails on duplicate or
// empty IDs, unknown categories or priorities, inverted employee ranges and
// CEL expressions that do not compile to a boolean.
func Load(data []byte) (*Base, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "knowledge: parse catalog")
	}
	if len(f.Entries) == 0 {
		return nil, eris.New("knowledge: catalog has no entries")
	}

	exprs, err := newExprSet()
	if err != nil {
		return nil, err
	}

	b := &Base{
		entries: f.Entries,
		byID:    make(map[string]int, len(f.Entries)),
		exprs:   exprs,
	}
	for i, e := range f.Entries {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		if _, dup := b.byID[e.ID]; dup {
			return nil, eris.Errorf("knowledge: duplicate entry id %q", e.ID)
		}
		b.byID[e.ID] = i
		if e.Conditions.Expr != "" {
			if err := exprs.compile(e.ID, e.Conditions.Expr); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func validateEntry(e model.KnowledgeBaseEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return eris.Errorf("knowledge: entry %q has no id", e.Requirement)
	}
	if strings.TrimSpace(e.Requirement) == "" {
		return eris.Errorf("knowledge: entry %s has no requirement name", e.ID)
	}
	if _, ok := model.ParseJurisdiction(e.Category); !ok {
		return eris.Errorf("knowledge: entry %s has unknown category %q", e.ID, e.Category)
	}
	if !e.Priority.Valid() {
		return eris.Errorf("knowledge: entry %s has unknown priority %q", e.ID, e.Priority)
	}
	c := e.Conditions
	if c.MinEmployees != nil && c.MaxEmployees != nil && *c.MinEmployees > *c.MaxEmployees {
		return eris.Errorf("knowledge: entry %s has min_employees > max_employees", e.ID)
	}
	if c.State != "" {
		if _, ok := model.StateAbbrev(c.State); !ok {
			return eris.Errorf("knowledge: entry %s has unknown state %q", e.ID, c.State)
		}
	}
	return nil
}

// Entries returns a copy of every catalog entry in catalog order.
func (b *Base) Entries() []model.KnowledgeBaseEntry {
	out := make([]model.KnowledgeBaseEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of catalog entries.
func (b *Base) Len() int { return len(b.entries) }

// Get returns the entry with the given id.
func (b *Base) Get(id string) (model.KnowledgeBaseEntry, bool) {
	i, ok := b.byID[id]
	if !ok {
		return model.KnowledgeBaseEntry{}, false
	}
	return b.entries[i], true
}

// Applicable returns the entries whose every defined condition holds for p,
// in catalog order.
func (b *Base) Applicable(p model.BusinessProfile) []model.KnowledgeBaseEntry {
	vars := profileVars(p)
	var out []model.KnowledgeBaseEntry
	for _, e := range b.entries {
		if !Matches(e.Conditions, p) {
			continue
		}
		if e.Conditions.Expr != "" {
			ok, err := b.exprs.eval(e.ID, vars)
			if err != nil {
				zap.L().Warn("knowledge: condition expression failed",
					zap.String("entry", e.ID),
					zap.Error(err),
				)
				continue
			}
			if !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Matches evaluates the structured (non-CEL) conditions against p.
//
// A profile with unknown revenue fails a revenue minimum. A profile that does
// not say whether it has a physical location is assumed to have one.
func Matches(c model.Conditions, p model.BusinessProfile) bool {
	if c.MinEmployees != nil && p.EmployeeCount < *c.MinEmployees {
		return false
	}
	if c.MaxEmployees != nil && p.EmployeeCount > *c.MaxEmployees {
		return false
	}
	if len(c.Industry) > 0 && !industryMatches(c.Industry, p) {
		return false
	}
	if c.State != "" && !stateMatches(c.State, p.State) {
		return false
	}
	if c.Revenue != nil {
		if p.AnnualRevenue == nil || *p.AnnualRevenue < *c.Revenue {
			return false
		}
	}
	if c.HasPhysicalLocation != nil {
		has := true
		if p.HasPhysicalLocation != nil {
			has = *p.HasPhysicalLocation
		}
		if has != *c.HasPhysicalLocation {
			return false
		}
	}
	return true
}

func industryMatches(aliases []string, p model.BusinessProfile) bool {
	for _, alias := range aliases {
		if prefix, ok := strings.CutPrefix(alias, "naics:"); ok {
			if p.NAICSCode != "" && strings.HasPrefix(strings.TrimSpace(p.NAICSCode), prefix) {
				return true
			}
			continue
		}
		if textutil.ContainsFold(p.Industry, alias) {
			return true
		}
	}
	return false
}

func stateMatches(want, have string) bool {
	w, ok1 := model.StateAbbrev(want)
	h, ok2 := model.StateAbbrev(have)
	if ok1 && ok2 {
		return w == h
	}
	return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have))
}
