package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/compliance-cli/internal/model"
)

const schemaURL = "https://compliance-cli.local/schemas/requirements.schema.json"

// requirementSchema is sent to the scrape provider and used to validate
// what it returns.
const requirementSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "requirements": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "agency": {"type": "string"},
          "form_number": {"type": "string"},
          "deadline": {"type": "string"},
          "frequency": {"type": "string"},
          "penalty": {"type": "string"},
          "applies_to": {"type": "string"},
          "citation": {"type": "string"}
        },
        "required": ["name"]
      }
    }
  },
  "required": ["requirements"]
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(requirementSchema)); err != nil {
		return nil, eris.Wrap(err, "scrape: load requirement schema")
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: compile requirement schema")
	}
	return s, nil
})

// RequirementSchema returns the extraction schema as a generic map, the form
// scrape providers accept.
func RequirementSchema() map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(requirementSchema), &m); err != nil {
		panic(err) // constant schema
	}
	return m
}

// ExtractionPrompt tailors the extraction instructions to the business so
// the provider filters by industry and location while it extracts.
func ExtractionPrompt(p model.BusinessProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract every compliance requirement on this page that applies to a %s business", p.Industry)
	if p.NAICSCode != "" {
		fmt.Fprintf(&b, " (NAICS %s)", p.NAICSCode)
	}
	fmt.Fprintf(&b, " with %d employees located in %s.", p.EmployeeCount, p.Location())
	b.WriteString(" Include licenses, permits, registrations, tax filings, reports, posters, labor and safety obligations.")
	fmt.Fprintf(&b, " Skip requirements that only apply to other industries or to states other than %s.", p.StateName())
	b.WriteString(" For each one give its name, a one-sentence description, the issuing agency, the form number if any, the deadline, how often it recurs, the penalty for non-compliance, who it applies to and the legal citation.")
	b.WriteString(" Only report what the page states. Leave a field empty rather than guessing.")
	return b.String()
}

type extractedRequirement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Agency      string `json:"agency"`
	FormNumber  string `json:"form_number"`
	Deadline    string `json:"deadline"`
	Frequency   string `json:"frequency"`
	Penalty     string `json:"penalty"`
	AppliesTo   string `json:"applies_to"`
	Citation    string `json:"citation"`
}

// pageRef identifies the page extracted requirements came from.
type pageRef struct {
	URL      string
	Title    string
	Category model.Jurisdiction
}

// source names the issuing body when the extraction left it blank.
func (r pageRef) source() string {
	if r.Title != "" {
		return r.Title
	}
	if u, err := url.Parse(r.URL); err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return r.URL
}

func (r pageRef) requirement(name, extraction string) model.Requirement {
	return model.Requirement{
		ID:              uuid.NewString(),
		Name:            name,
		Source:          r.source(),
		SourceURL:       r.URL,
		SourceType:      r.Category,
		ConfidenceLevel: model.ConfidenceMedium,
		Metadata: model.RequirementMetadata{
			ExtractedAt:  time.Now().UTC(),
			Jurisdiction: r.Category,
			Extraction:   extraction,
		},
	}
}

// decodeStructured validates provider JSON against the requirement schema and
// converts it. A bare array is accepted as the requirements list. Invalid
// documents yield an error and no requirements.
func decodeStructured(raw []byte, ref pageRef) ([]model.Requirement, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		raw = append(append([]byte(`{"requirements":`), raw...), '}')
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "scrape: decode extraction")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, eris.Wrap(err, "scrape: extraction failed schema validation")
	}

	var payload struct {
		Requirements []extractedRequirement `json:"requirements"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, eris.Wrap(err, "scrape: decode extraction")
	}

	out := make([]model.Requirement, 0, len(payload.Requirements))
	for _, e := range payload.Requirements {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		r := ref.requirement(name, "schema")
		r.Description = strings.TrimSpace(e.Description)
		if a := strings.TrimSpace(e.Agency); a != "" {
			r.Source = a
		}
		r.FormNumber = strings.TrimSpace(e.FormNumber)
		r.Deadline = strings.TrimSpace(e.Deadline)
		r.Frequency = strings.TrimSpace(e.Frequency)
		r.Penalty = strings.TrimSpace(e.Penalty)
		r.AppliesCondition = strings.TrimSpace(e.AppliesTo)
		r.Citation = strings.TrimSpace(e.Citation)
		out = append(out, r)
	}
	return out, nil
}
