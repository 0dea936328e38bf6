// Package resolveerr declares the sentinel error taxonomy wrapped by the
// version engine and the lockfile freshness check, so callers can
// errors.Is/errors.As against a stable set of failure kinds instead of
// matching strings.
package resolveerr

import "errors"

var (
	// ErrInvalidVersion is wrapped when a raw version string cannot be
	// normalized by any of the classical, date, or branch forms.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrInvalidOperator is wrapped when a constraint uses an operator
	// glyph the parser does not recognize, including the explicitly
	// rejected "~>" operator.
	ErrInvalidOperator = errors.New("invalid constraint operator")

	// ErrInvalidStability is wrapped when a stability flag or suffix
	// doesn't match one of dev/alpha/beta/RC/stable.
	ErrInvalidStability = errors.New("invalid stability")

	// ErrConstraintParse is wrapped for any other constraint-parsing
	// failure (malformed ranges, dangling operators, empty clauses).
	ErrConstraintParse = errors.New("constraint parse error")

	// ErrUnsolvable names the failure where the SAT instance built from
	// the pool and request has no model. The solver reports that case
	// as a *ProblemSet and does not wrap this sentinel.
	ErrUnsolvable = errors.New("no solution satisfies the request")

	// ErrIterationCapExceeded names the failure where the solver's
	// safety cap on CDCL iterations is hit. The solver reports that case
	// as a ProblemSet with a message and does not wrap this sentinel.
	ErrIterationCapExceeded = errors.New("solver exceeded iteration cap")

	// ErrStaleLockfile is wrapped when a lockfile's recorded content
	// hash no longer matches the manifest it was generated from.
	ErrStaleLockfile = errors.New("lockfile is out of date with the manifest")
)
