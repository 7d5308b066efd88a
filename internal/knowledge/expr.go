package knowledge

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
)

// exprSet holds compiled CEL programs keyed by entry id. It is written only
// during Load; cel.Program is safe for concurrent Eval.
type exprSet struct {
	env      *cel.Env
	programs map[string]cel.Program
}

func newExprSet() (*exprSet, error) {
	env, err := cel.NewEnv(
		cel.Variable("employees", cel.IntType),
		cel.Variable("revenue", cel.DoubleType),
		cel.Variable("state", cel.StringType),
		cel.Variable("city", cel.StringType),
		cel.Variable("industry", cel.StringType),
		cel.Variable("naics", cel.StringType),
		cel.Variable("factors", cel.ListType(cel.StringType)),
		cel.Variable("has_physical_location", cel.BoolType),
	)
	if err != nil {
		return nil, eris.Wrap(err, "knowledge: create CEL environment")
	}
	return &exprSet{env: env, programs: make(map[string]cel.Program)}, nil
}

func (s *exprSet) compile(id, expr string) error {
	ast, issues := s.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return eris.Wrapf(issues.Err(), "knowledge: entry %s: compile expr", id)
	}
	if ast.OutputType().String() != cel.BoolType.String() {
		return eris.Errorf("knowledge: entry %s: expr must be boolean, got %s", id, ast.OutputType())
	}
	prg, err := s.env.Program(ast)
	if err != nil {
		return eris.Wrapf(err, "knowledge: entry %s: build program", id)
	}
	s.programs[id] = prg
	return nil
}

func (s *exprSet) eval(id string, vars map[string]any) (bool, error) {
	prg, ok := s.programs[id]
	if !ok {
		return false, eris.Errorf("knowledge: entry %s has no compiled expr", id)
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, eris.Wrapf(err, "knowledge: entry %s: eval", id)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, eris.Errorf("knowledge: entry %s: expr returned %T", id, out.Value())
	}
	return val, nil
}

// profileVars exposes the profile to CEL. Strings are lowercased so catalog
// authors never need case-insensitive comparisons; state is the upper-case
// postal code.
func profileVars(p model.BusinessProfile) map[string]any {
	factors := make([]string, 0, len(p.SpecialFactors))
	for _, f := range p.SpecialFactors {
		factors = append(factors, strings.ToLower(f))
	}
	state := strings.ToUpper(p.StateCode())
	if state == "" {
		state = strings.ToUpper(strings.TrimSpace(p.State))
	}
	hasLocation := true
	if p.HasPhysicalLocation != nil {
		hasLocation = *p.HasPhysicalLocation
	}
	return map[string]any{
		"employees":             int64(p.EmployeeCount),
		"revenue":               p.Revenue(),
		"state":                 state,
		"city":                  strings.ToLower(strings.TrimSpace(p.City)),
		"industry":              strings.ToLower(strings.TrimSpace(p.Industry)),
		"naics":                 strings.TrimSpace(p.NAICSCode),
		"factors":               factors,
		"has_physical_location": hasLocation,
	}
}
