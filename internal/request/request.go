// Package request defines the typed input the resolver core consumes:
// the root package's requirements plus any fixed/locked packages
// carried over from a previous solve.
package request

import "github.com/shyim/pox-sub000/internal/pkgmodel"

// Request is built by the caller (the installer, or a CLI command)
// and handed to Solver.Solve. It never reads a lockfile itself; the
// caller is responsible for populating LockedPackages from one.
type Request struct {
	Requires    *pkgmodel.OrderedMap // name -> constraint string
	RequiresDev *pkgmodel.OrderedMap

	// FixedPackages must be installed exactly as given: a single-
	// literal assertion rule is emitted for each. Used for the root
	// package itself and any package the caller refuses to let the
	// solver touch.
	FixedPackages []*pkgmodel.Package

	// LockedPackages stabilizes the solve: the optimizer uses these
	// to prune impossible alternatives and never removes them. The
	// policy does not consult them.
	LockedPackages []*pkgmodel.Package
}

// New returns an empty Request ready for Require/RequireDev/Fix/Lock
// calls.
func New() *Request {
	return &Request{
		Requires:   pkgmodel.NewOrderedMap(),
		RequiresDev: pkgmodel.NewOrderedMap(),
	}
}

// Require adds a root requirement in manifest order.
func (r *Request) Require(name, constraint string) *Request {
	r.Requires.Set(name, constraint)
	return r
}

// RequireDev adds a root require-dev entry.
func (r *Request) RequireDev(name, constraint string) *Request {
	r.RequiresDev.Set(name, constraint)
	return r
}

// Fix marks pkg as a fixed, non-negotiable member of the solution.
func (r *Request) Fix(pkg *pkgmodel.Package) *Request {
	r.FixedPackages = append(r.FixedPackages, pkg)
	return r
}

// Lock records pkg as a previously-solved, stabilizing input.
func (r *Request) Lock(pkg *pkgmodel.Package) *Request {
	r.LockedPackages = append(r.LockedPackages, pkg)
	return r
}

// AllRequires returns the root requirements (including require-dev)
// as (name, constraint) pairs in manifest order, requires first then
// require-dev, matching the rule generator's iteration order.
func (r *Request) AllRequires() []NameConstraint {
	out := make([]NameConstraint, 0, r.Requires.Len()+r.RequiresDev.Len())
	r.Requires.Each(func(name, constraint string) {
		out = append(out, NameConstraint{Name: name, Constraint: constraint})
	})
	r.RequiresDev.Each(func(name, constraint string) {
		out = append(out, NameConstraint{Name: name, Constraint: constraint})
	})
	return out
}

// NameConstraint is a (package name, constraint string) pair.
type NameConstraint struct {
	Name       string
	Constraint string
}
