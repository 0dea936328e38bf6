// Package solver implements the CDCL SAT core described in spec.md
// 4.F and 4.G: given a Pool and a Request it either returns a
// SolverResult or a ProblemSet explaining why no solution exists. It
// performs no I/O of its own; Solver.Logger is strictly optional trace
// output, following the same inject-a-*log.Logger-or-stay-silent
// idiom as the reference dependency solver's TraceLogger.
package solver

import (
	"log"
	"sort"

	"github.com/shyim/pox-sub000/internal/optimizer"
	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/policy"
	"github.com/shyim/pox-sub000/internal/pool"
	"github.com/shyim/pox-sub000/internal/request"
	"github.com/shyim/pox-sub000/internal/rules"
)

// SolverResult is the complete, deduplicated set of packages and
// package aliases the solver decided to install.
type SolverResult struct {
	Packages []*pkgmodel.Package
	Aliases  []*pkgmodel.AliasPackage
}

// Solver runs one resolution over an immutable pool.
type Solver struct {
	pool         *pool.Pool
	policy       *policy.Policy
	optimizePool bool

	// Logger, if set, receives trace output. Nil (the default) means
	// no output at all — Solve never writes anywhere on its own.
	Logger *log.Logger
}

// New returns a Solver bound to pl, breaking ties with pol. Pool
// optimization is enabled by default.
func New(pl *pool.Pool, pol *policy.Policy) *Solver {
	return &Solver{pool: pl, policy: pol, optimizePool: true}
}

// WithOptimization toggles the pre-solve pool optimizer pass.
func (s *Solver) WithOptimization(enable bool) *Solver {
	s.optimizePool = enable
	return s
}

// WithLogger attaches a trace logger.
func (s *Solver) WithLogger(l *log.Logger) *Solver {
	s.Logger = l
	return s
}

func (s *Solver) tracef(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// Solve resolves req against the solver's pool.
func (s *Solver) Solve(req *request.Request) (*SolverResult, *ProblemSet) {
	activePool := s.pool
	if s.optimizePool {
		opt := optimizer.New(s.policy)
		activePool = opt.Optimize(req, s.pool)
		s.tracef("pool optimizer: %d -> %d packages", s.pool.Len(), activePool.Len())
	}
	return s.solveWithPool(activePool, req)
}

func (s *Solver) solveWithPool(pl *pool.Pool, req *request.Request) (*SolverResult, *ProblemSet) {
	gen := rules.NewGenerator(pl)
	rs := gen.Generate(req)
	s.tracef("generated %d rules", len(rs))

	state := &solverState{rules: rs, decisions: newDecisions()}

	if ps := s.runSAT(state, pl); ps != nil {
		return nil, ps
	}
	return s.buildResult(state, pl, req), nil
}

// branch records an unvisited alternative left over from a decision,
// so the minimization pass can later try a better one.
type branch struct {
	level        uint32
	alternatives []rules.Literal
	name         string
}

type solverState struct {
	rules     []*rules.Rule
	decisions *decisions
	branches  []*branch
}

const maxIterations = 100_000

// runSAT is the main solving loop: propagate, pick the next undecided
// package, backtrack on conflict via learned clauses, and once no
// package is left undecided, spend any remaining branch alternatives
// trying to improve on the first solution found.
func (s *Solver) runSAT(state *solverState, pl *pool.Pool) *ProblemSet {
	if ps := s.processAssertions(state, pl); ps != nil {
		return ps
	}

	iterations := 0
	for {
		iterations++
		if iterations > maxIterations {
			ps := NewProblemSet()
			ps.Add(NewProblem().WithMessage("solver exceeded maximum iterations"))
			return ps
		}

		if conflictRuleID, hasConflict := s.propagate(state); hasConflict {
			if state.decisions.Level() == 1 {
				ps := NewProblemSet()
				ps.Add(s.analyzeUnsolvable(state, pl, conflictRuleID))
				return ps
			}
			level, ps := s.analyzeAndBacktrack(state, conflictRuleID)
			if ps != nil {
				return ps
			}
			if level == 0 {
				return NewProblemSet()
			}
			continue
		}

		if candidates, name, ok := s.selectNext(state); ok {
			level, ps := s.selectAndInstall(state, pl, candidates, name)
			if ps != nil {
				return ps
			}
			if level == 0 {
				return NewProblemSet()
			}
			continue
		}

		more, ps := s.minimizeSolution(state, pl)
		if ps != nil {
			return ps
		}
		if !more {
			return nil
		}
	}
}

// processAssertions rejects any empty (unsatisfiable) rule up front,
// then decides every unit rule at level 1.
func (s *Solver) processAssertions(state *solverState, pl *pool.Pool) *ProblemSet {
	state.decisions.IncrementLevel()

	for _, r := range state.rules {
		if r.IsEmpty() {
			ps := NewProblemSet()
			p := NewProblem()
			p.AddRule(r, pl)
			ps.Add(p)
			return ps
		}
	}

	for _, r := range state.rules {
		if !r.IsUnit() {
			continue
		}
		lit := r.Literals[0]
		if state.decisions.Conflict(lit) {
			ps := NewProblemSet()
			p := NewProblem()
			p.AddRule(r, pl)
			ps.Add(p)
			return ps
		}
		if !state.decisions.Satisfied(lit) {
			state.decisions.Decide(lit, r.ID)
		}
	}
	return nil
}

// propagate runs unit propagation to a fixpoint: any rule with exactly
// one undecided literal and no satisfied literal forces that literal
// true; a rule with zero undecided literals and none satisfied is a
// conflict.
func (s *Solver) propagate(state *solverState) (conflictRuleID int, hasConflict bool) {
	for {
		changed := false
		for _, r := range state.rules {
			if len(r.Literals) == 0 {
				continue
			}
			satisfied := false
			var undecided []rules.Literal
			for _, lit := range r.Literals {
				if state.decisions.Satisfied(lit) {
					satisfied = true
					break
				}
				if !state.decisions.Conflict(lit) {
					undecided = append(undecided, lit)
				}
			}
			if satisfied {
				continue
			}
			if len(undecided) == 0 {
				return r.ID, true
			}
			if len(undecided) == 1 {
				lit := undecided[0]
				if !state.decisions.Satisfied(lit) {
					state.decisions.Decide(lit, r.ID)
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return 0, false
}

// selectNext finds the next rule with an unforced choice left,
// scanning root-require, fixed and package-requires rules together in
// rule order.
func (s *Solver) selectNext(state *solverState) (candidates []pool.ID, name string, ok bool) {
	for _, r := range state.rules {
		switch r.Type {
		case rules.RootRequire, rules.Fixed:
			var queue []pool.ID
			noneSatisfied := true
			for _, lit := range r.Literals {
				if state.decisions.Satisfied(lit) {
					noneSatisfied = false
					break
				}
				if lit.Positive() && state.decisions.Undecided(lit.ID()) {
					queue = append(queue, pool.ID(lit.ID()))
				}
			}
			if noneSatisfied && len(queue) > 0 {
				return queue, r.RequirementName, true
			}

		case rules.PackageRequires:
			if len(r.Literals) == 0 {
				continue
			}
			sourceLit := r.Literals[0]
			if sourceLit.Positive() {
				continue
			}
			if !state.decisions.DecidedInstall(sourceLit.ID()) {
				continue
			}

			var queue []pool.ID
			for _, lit := range r.Literals[1:] {
				if !lit.Positive() {
					continue // handled by propagate; not a branch point
				}
				if state.decisions.Satisfied(lit) {
					queue = nil
					break
				}
				if state.decisions.Undecided(lit.ID()) {
					queue = append(queue, pool.ID(lit.ID()))
				}
			}
			if len(queue) > 0 {
				return queue, r.RequirementName, true
			}
		}
	}
	return nil, "", false
}

// selectAndInstall picks the policy-preferred candidate, remembers the
// rest as a branch alternative for later minimization, and propagates
// the consequences, resolving any conflict via CDCL before returning.
func (s *Solver) selectAndInstall(state *solverState, pl *pool.Pool, candidates []pool.ID, name string) (uint32, *ProblemSet) {
	sorted := s.policy.SelectPreferredForRequirement(pl, candidates, name)
	if len(sorted) == 0 {
		return state.decisions.Level(), nil
	}

	selected := sorted[0]
	if len(sorted) > 1 {
		alts := make([]rules.Literal, 0, len(sorted)-1)
		for _, id := range sorted[1:] {
			alts = append(alts, rules.Literal(int32(id)))
		}
		state.branches = append(state.branches, &branch{
			level:        state.decisions.Level(),
			alternatives: alts,
			name:         name,
		})
	}

	state.decisions.IncrementLevel()
	state.decisions.Decide(rules.Literal(int32(selected)), noReason)

	for {
		conflictRuleID, hasConflict := s.propagate(state)
		if !hasConflict {
			return state.decisions.Level(), nil
		}
		if state.decisions.Level() == 1 {
			ps := NewProblemSet()
			ps.Add(s.analyzeUnsolvable(state, pl, conflictRuleID))
			return 0, ps
		}
		level, ps := s.analyzeAndBacktrack(state, conflictRuleID)
		if ps != nil {
			return 0, ps
		}
		if level == 0 {
			return 0, nil
		}
	}
}

// analyzeAndBacktrack learns a clause from conflictRuleID via
// analyzeConflict and unwinds state to the level the learned clause
// calls for.
func (s *Solver) analyzeAndBacktrack(state *solverState, conflictRuleID int) (uint32, *ProblemSet) {
	learnedLit, backtrackLevel, learnedLits := s.analyzeConflict(state, conflictRuleID)

	if backtrackLevel == 0 || backtrackLevel >= state.decisions.Level() {
		return 0, nil
	}

	state.decisions.RevertToLevel(backtrackLevel)

	kept := state.branches[:0]
	for _, b := range state.branches {
		if b.level <= backtrackLevel {
			kept = append(kept, b)
		}
	}
	state.branches = kept

	if len(learnedLits) > 0 {
		r := &rules.Rule{Type: rules.Learned, Literals: learnedLits}
		r.ID = len(state.rules)
		state.rules = append(state.rules, r)
		state.decisions.Decide(learnedLit, r.ID)
	}

	return backtrackLevel, nil
}

// minimizeSolution looks for a branch alternative whose package ended
// up decided at a level deeper than where the branch was recorded —
// evidence a shallower, possibly better solution might exist — and
// retries with that alternative. Returns false once no such
// alternative remains, meaning the current solution is final.
func (s *Solver) minimizeSolution(state *solverState, pl *pool.Pool) (bool, *ProblemSet) {
	if len(state.branches) == 0 {
		return false, nil
	}

	type candidate struct {
		branchIdx, offset int
		lit               rules.Literal
		level             uint32
	}
	var best *candidate

	for i := len(state.branches) - 1; i >= 0; i-- {
		b := state.branches[i]
		for offset, lit := range b.alternatives {
			if !lit.Positive() {
				continue
			}
			if lvl, ok := state.decisions.DecisionLevel(lit); ok && lvl > b.level+1 {
				best = &candidate{branchIdx: i, offset: offset, lit: lit, level: b.level}
			}
		}
	}

	if best == nil {
		return false, nil
	}

	b := state.branches[best.branchIdx]
	b.alternatives = append(b.alternatives[:best.offset], b.alternatives[best.offset+1:]...)
	if len(b.alternatives) == 0 {
		state.branches = append(state.branches[:best.branchIdx], state.branches[best.branchIdx+1:]...)
	}

	state.decisions.RevertToLevel(best.level)

	kept := state.branches[:0]
	for _, br := range state.branches {
		if br.level < best.level {
			kept = append(kept, br)
		}
	}
	state.branches = kept

	state.decisions.IncrementLevel()
	state.decisions.Decide(best.lit, noReason)

	for {
		conflictRuleID, hasConflict := s.propagate(state)
		if !hasConflict {
			return true, nil
		}
		if state.decisions.Level() == 1 {
			ps := NewProblemSet()
			ps.Add(s.analyzeUnsolvable(state, pl, conflictRuleID))
			return false, ps
		}
		level, ps := s.analyzeAndBacktrack(state, conflictRuleID)
		if ps != nil {
			return false, ps
		}
		if level == 0 {
			return false, nil
		}
	}
}

// analyzeConflict walks the implication graph backwards from
// conflictRuleID using the first-UIP scheme: resolve the conflicting
// rule's literals against the decision trail until exactly one literal
// from the current decision level remains unresolved. That literal's
// negation becomes the learned unit; literals from earlier levels ride
// along as the rest of the learned clause, and the deepest of their
// levels is where the solver backtracks to.
func (s *Solver) analyzeConflict(state *solverState, conflictRuleID int) (rules.Literal, uint32, []rules.Literal) {
	currentLevel := state.decisions.Level()
	seen := make(map[int32]bool)
	numAtCurrentLevel := 0
	numAtLevel1 := 0
	var otherLearned []rules.Literal
	var backtrackLevel uint32
	var learnedLit rules.Literal
	haveLearned := false

	decisionIdx := state.decisions.Len()
	currentRuleID := conflictRuleID
	haveCurrentRule := true

	for {
		if haveCurrentRule {
			r := state.rules[currentRuleID]
			for _, lit := range r.Literals {
				pkgID := lit.ID()
				if seen[pkgID] {
					continue
				}
				if state.decisions.Satisfied(lit) {
					continue
				}
				seen[pkgID] = true
				level, ok := state.decisions.DecisionLevel(lit)
				if !ok || level == 0 {
					continue
				}
				switch {
				case level == 1:
					numAtLevel1++
				case level == currentLevel:
					numAtCurrentLevel++
				default:
					otherLearned = append(otherLearned, lit)
					if level > backtrackLevel {
						backtrackLevel = level
					}
				}
			}
		}

		if numAtCurrentLevel == 0 {
			break
		}

		for decisionIdx > 0 {
			decisionIdx--
			lit, _ := state.decisions.At(decisionIdx)
			pkgID := lit.ID()
			if !seen[pkgID] {
				continue
			}
			delete(seen, pkgID)
			numAtCurrentLevel--
			if numAtCurrentLevel == 0 {
				learnedLit = lit.Negate()
				haveLearned = true
				if numAtLevel1 == 0 {
					break
				}
				for _, other := range otherLearned {
					delete(seen, other.ID())
				}
				numAtLevel1++
			} else if reasonID, ok := state.decisions.DecisionRule(lit); ok {
				currentRuleID = reasonID
				haveCurrentRule = true
			} else {
				haveCurrentRule = false
			}
			break
		}

		if haveLearned || decisionIdx == 0 {
			break
		}
	}

	if !haveLearned {
		for i := state.decisions.Len() - 1; i >= 0; i-- {
			lit, _ := state.decisions.At(i)
			if lvl, ok := state.decisions.DecisionLevel(lit); ok && lvl == currentLevel {
				learnedLit = lit.Negate()
				haveLearned = true
				break
			}
		}
		if !haveLearned {
			learnedLit = rules.Literal(1)
		}
	}

	learnedLits := make([]rules.Literal, 0, 1+len(otherLearned))
	learnedLits = append(learnedLits, learnedLit)
	for _, lit := range otherLearned {
		learnedLits = append(learnedLits, lit.Negate())
	}

	if backtrackLevel >= currentLevel {
		if currentLevel > 0 {
			backtrackLevel = currentLevel - 1
		} else {
			backtrackLevel = 0
		}
	}
	if backtrackLevel == 0 && currentLevel > 1 {
		backtrackLevel = 1
	}

	return learnedLit, backtrackLevel, learnedLits
}

// analyzeUnsolvable builds the user-facing Problem for a conflict that
// occurred at decision level 1, where there is no higher level left to
// backtrack to.
func (s *Solver) analyzeUnsolvable(state *solverState, pl *pool.Pool, conflictRuleID int) *Problem {
	p := NewProblem()
	r := state.rules[conflictRuleID]
	p.AddRule(r, pl)
	for _, lit := range r.Literals {
		if reasonID, ok := state.decisions.DecisionRule(lit); ok {
			p.AddRule(state.rules[reasonID], pl)
		}
	}
	return p
}

// buildResult reads off every installed package id, resolving aliases
// and skipping fixed (caller-supplied) packages and duplicate
// name/version pairs an alias might otherwise introduce twice.
func (s *Solver) buildResult(state *solverState, pl *pool.Pool, req *request.Request) *SolverResult {
	result := &SolverResult{}
	seenKey := make(map[string]bool)
	seenAlias := make(map[pool.ID]bool)

	fixedNames := make(map[string]bool, len(req.FixedPackages))
	for _, f := range req.FixedPackages {
		fixedNames[f.Name] = true
	}

	for _, id32 := range state.decisions.InstalledPackages() {
		id := pool.ID(id32)
		pkg, alias := pl.Entry(id)
		if alias != nil {
			if !seenAlias[id] {
				seenAlias[id] = true
				result.Aliases = append(result.Aliases, alias)
			}
			continue
		}
		if pkg == nil {
			continue
		}
		if fixedNames[pkg.Name] {
			continue
		}
		key := pkg.Name + "@" + pkg.Version
		if seenKey[key] {
			continue
		}
		seenKey[key] = true
		result.Packages = append(result.Packages, pkg)

		for _, aliasID := range pl.GetAliases(id) {
			if _, a := pl.Entry(aliasID); a != nil && !seenAlias[aliasID] {
				seenAlias[aliasID] = true
				result.Aliases = append(result.Aliases, a)
			}
		}
	}

	sort.SliceStable(result.Packages, func(i, j int) bool {
		return result.Packages[i].Name < result.Packages[j].Name
	})

	return result
}
