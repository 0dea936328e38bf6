package solver

import (
	"fmt"
	"strings"

	"github.com/shyim/pox-sub000/internal/pool"
	"github.com/shyim/pox-sub000/internal/rules"
)

// Problem explains one independent reason the request is unsolvable, as
// a chain of the rules that forced the conflict (spec.md 4.G's failure
// model).
type Problem struct {
	Message string
	Rules   []*rules.Rule
}

// NewProblem returns an empty Problem ready for rule attribution.
func NewProblem() *Problem { return &Problem{} }

// WithMessage sets a free-text summary and returns the Problem.
func (p *Problem) WithMessage(msg string) *Problem {
	p.Message = msg
	return p
}

// AddRule records rule r, resolved against pl for a human-readable
// explanation, as a cause of this problem.
func (p *Problem) AddRule(r *rules.Rule, pl *pool.Pool) {
	p.Rules = append(p.Rules, r)
	_ = pl // reserved for a future richer per-rule rendering
}

// Error renders the problem the way Composer renders a "Problem N"
// block: one line per contributing rule plus any free-text message.
func (p *Problem) Error() string {
	var b strings.Builder
	if p.Message != "" {
		b.WriteString(p.Message)
	}
	for _, r := range p.Rules {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(explainRule(r))
	}
	if b.Len() == 0 {
		return "could not solve the given requirements"
	}
	return b.String()
}

func explainRule(r *rules.Rule) string {
	switch r.Type {
	case rules.RootRequire:
		if len(r.Literals) == 0 {
			return fmt.Sprintf("no version of %q matches the required %q", r.RequirementName, r.RequirementText)
		}
		return fmt.Sprintf("root requires %s %s", r.RequirementName, r.RequirementText)
	case rules.PackageRequires:
		return fmt.Sprintf("%s requires %s %s -> no matching version found or it conflicts with another requirement", r.RequirementName, r.RequirementName, r.RequirementText)
	case rules.PackageConflict:
		return fmt.Sprintf("conflicting requirement on %s %s", r.RequirementName, r.RequirementText)
	case rules.SamePackage:
		return fmt.Sprintf("%s appears with two conflicting versions", r.RequirementName)
	case rules.Fixed:
		return fmt.Sprintf("fixed package %s could not be installed", r.RequirementName)
	default:
		return r.String()
	}
}

// ProblemSet is every independent failure reason the solver found for
// one Solve call.
type ProblemSet struct {
	Problems []*Problem
}

// NewProblemSet returns an empty ProblemSet.
func NewProblemSet() *ProblemSet { return &ProblemSet{} }

// Add appends p to the set.
func (ps *ProblemSet) Add(p *Problem) { ps.Problems = append(ps.Problems, p) }

// Empty reports whether the set carries no problems at all (the solver
// returns one of these when conflict analysis finds no level to
// backtrack to).
func (ps *ProblemSet) Empty() bool { return ps == nil || len(ps.Problems) == 0 }

// Error implements the error interface so a ProblemSet can be returned
// and handled like any other Go error.
func (ps *ProblemSet) Error() string {
	if ps.Empty() {
		return "unsolvable"
	}
	var b strings.Builder
	for i, p := range ps.Problems {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Problem %d\n%s", i+1, p.Error())
	}
	return b.String()
}
