// Package pool implements the indexed package pool described in
// spec.md's data model: a dense id-addressed collection of candidate
// package versions (including virtual aliases), with stability
// filtering and a shared provide/replace index.
//
// Grounded on the Rust reference implementation's
// phpx-pm/src/solver/pool.rs, adapted to Go idiom (explicit error
// returns are not needed here since add() signals failure via the
// sentinel id 0, matching the reference's own convention).
package pool

import (
	"strings"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/semver"
)

// ID is a dense, 1-based package id. 0 is the sentinel "no package"
// value so that a signed literal can encode sign and magnitude
// unambiguously.
type ID int32

type entryKind uint8

const (
	entryPlaceholder entryKind = iota
	entryPackage
	entryAlias
)

type entry struct {
	kind  entryKind
	pkg   *pkgmodel.Package
	alias *pkgmodel.AliasPackage
}

// Pool is the package pool. It is built incrementally via Add*
// methods and then treated as read-only by the rule generator,
// optimizer, and solver.
type Pool struct {
	entries []entry // entries[0] is the placeholder sentinel

	byName    map[string][]ID
	providers map[string][]ID // name -> ids that provide or replace it (or are it)

	repoOf     map[ID]any
	priorityOf map[ID]int

	aliasBase   map[ID]ID
	aliasesOf   map[ID][]ID
	rootAlias   map[ID]bool

	minimumStability semver.Stability
	stabilityFlags   map[string]semver.Stability

	normalizedVersions map[string]string
	parsedConstraints  map[string]semver.Constraint
	eqConstraints      map[ID]semver.Constraint
}

// New creates an empty pool with the given global minimum stability
// floor.
func New(minimumStability semver.Stability) *Pool {
	return &Pool{
		entries:            make([]entry, 1), // index 0 placeholder
		byName:             make(map[string][]ID),
		providers:          make(map[string][]ID),
		repoOf:             make(map[ID]any),
		priorityOf:         make(map[ID]int),
		aliasBase:          make(map[ID]ID),
		aliasesOf:          make(map[ID][]ID),
		rootAlias:          make(map[ID]bool),
		minimumStability:   minimumStability,
		stabilityFlags:     make(map[string]semver.Stability),
		normalizedVersions: make(map[string]string),
		parsedConstraints:  make(map[string]semver.Constraint),
		eqConstraints:      make(map[ID]semver.Constraint),
	}
}

// AddStabilityFlag records a per-package minimum-stability override
// that takes priority over the pool's global floor.
func (p *Pool) AddStabilityFlag(name string, st semver.Stability) {
	p.stabilityFlags[pkgmodel.LowerName(name)] = st
}

// MinimumStability returns the pool's global stability floor, so that
// a derived pool (the optimizer's pruned copy) can be built with the
// same floor rather than silently reverting to the least restrictive
// one.
func (p *Pool) MinimumStability() semver.Stability {
	return p.minimumStability
}

// StabilityFlags returns a copy of the pool's per-package
// minimum-stability overrides, keyed by lowercased name.
func (p *Pool) StabilityFlags() map[string]semver.Stability {
	out := make(map[string]semver.Stability, len(p.stabilityFlags))
	for k, v := range p.stabilityFlags {
		out[k] = v
	}
	return out
}

func (p *Pool) effectiveMinimumStability(name string) semver.Stability {
	if flag, ok := p.stabilityFlags[pkgmodel.LowerName(name)]; ok {
		return flag
	}
	return p.minimumStability
}

func (p *Pool) meetsStabilityRequirement(pkg *pkgmodel.Package) bool {
	return pkg.Stability.Priority() >= p.effectiveMinimumStability(pkg.Name).Priority()
}

// Add inserts pkg into the pool under the given repository origin
// (any repository-identifying value; the core treats it opaquely),
// returning the new id, or 0 if the package's stability is below the
// effective floor for its name.
func (p *Pool) Add(pkg *pkgmodel.Package, repo any) ID {
	if !p.meetsStabilityRequirement(pkg) {
		return 0
	}
	return p.insertPackage(pkg, repo)
}

// AddPlatform inserts a platform package (php, ext-*, composer-plugin-api),
// bypassing the stability filter: platform presence is axiomatic, not
// subject to the project's minimum-stability policy.
func (p *Pool) AddPlatform(pkg *pkgmodel.Package, repo any) ID {
	return p.insertPackage(pkg, repo)
}

// AddBypassStability inserts pkg unconditionally. Used for the root
// package itself and, by the optimizer, for packages it must keep
// alive across a stability floor that wasn't in effect when they were
// first loaded.
func (p *Pool) AddBypassStability(pkg *pkgmodel.Package, repo any) ID {
	return p.insertPackage(pkg, repo)
}

func (p *Pool) insertPackage(pkg *pkgmodel.Package, repo any) ID {
	id := ID(len(p.entries))
	p.entries = append(p.entries, entry{kind: entryPackage, pkg: pkg})
	p.repoOf[id] = repo

	p.index(id, pkg.Name)
	pkg.Provide.Each(func(name, _ string) { p.indexProvider(id, name) })
	pkg.Replace.Each(func(name, _ string) { p.indexProvider(id, name) })
	p.indexProvider(id, pkg.Name)
	return id
}

func (p *Pool) index(id ID, name string) {
	name = pkgmodel.LowerName(name)
	p.byName[name] = append(p.byName[name], id)
}

func (p *Pool) indexProvider(id ID, name string) {
	name = pkgmodel.LowerName(name)
	list := p.providers[name]
	if len(list) > 0 && list[len(list)-1] == id {
		return
	}
	p.providers[name] = append(list, id)
}

// AddAlias registers an alias of baseID at alias (a normalized
// version) / prettyAlias (its display form). isRootAlias marks it as
// originating from the root package's requirements, which receives
// priority in policy tie-breaks.
func (p *Pool) AddAlias(baseID ID, alias, prettyAlias string, isRootAlias bool) ID {
	basePkg := p.entries[baseID].pkg
	if basePkg == nil {
		return 0
	}
	ap := pkgmodel.NewAliasPackage(basePkg, alias, prettyAlias, isRootAlias)
	return p.AddAliasPackage(ap, p.repoOf[baseID], baseID)
}

// AddAliasPackage registers an already-constructed AliasPackage,
// linking it to baseID.
func (p *Pool) AddAliasPackage(ap *pkgmodel.AliasPackage, repo any, baseID ID) ID {
	id := ID(len(p.entries))
	p.entries = append(p.entries, entry{kind: entryAlias, alias: ap})
	p.repoOf[id] = repo
	p.aliasBase[id] = baseID
	p.aliasesOf[baseID] = append(p.aliasesOf[baseID], id)
	if ap.IsRootAlias {
		p.rootAlias[id] = true
	}

	p.index(id, ap.Name())
	ap.Provide.Each(func(name, _ string) { p.indexProvider(id, name) })
	ap.Replace.Each(func(name, _ string) { p.indexProvider(id, name) })
	p.indexProvider(id, ap.Name())
	return id
}

// Entry returns the alias-aware pool entry contents: exactly one of
// (*pkgmodel.Package, nil) or (nil, *pkgmodel.AliasPackage) is
// non-nil, or both nil for an out-of-range or sentinel id.
func (p *Pool) Entry(id ID) (*pkgmodel.Package, *pkgmodel.AliasPackage) {
	if int(id) <= 0 || int(id) >= len(p.entries) {
		return nil, nil
	}
	e := p.entries[id]
	return e.pkg, e.alias
}

// Package returns the underlying Package for id, resolving aliases to
// their base. It never returns nil for a valid, non-sentinel id.
func (p *Pool) Package(id ID) *pkgmodel.Package {
	pkg, alias := p.Entry(id)
	if pkg != nil {
		return pkg
	}
	if alias != nil {
		return alias.Base
	}
	return nil
}

// IsAlias reports whether id refers to an alias entry.
func (p *Pool) IsAlias(id ID) bool {
	_, alias := p.Entry(id)
	return alias != nil
}

// IsRootPackageAlias reports whether id is an alias created from the
// root package's requirements.
func (p *Pool) IsRootPackageAlias(id ID) bool {
	return p.rootAlias[id]
}

// GetAliasBase returns the base id of an alias, and whether id was an
// alias at all.
func (p *Pool) GetAliasBase(id ID) (ID, bool) {
	base, ok := p.aliasBase[id]
	return base, ok
}

// GetAliases returns every alias id registered against baseID.
func (p *Pool) GetAliases(baseID ID) []ID {
	return append([]ID(nil), p.aliasesOf[baseID]...)
}

// PackagesByName returns every id (package or alias) registered under
// name, in insertion order.
func (p *Pool) PackagesByName(name string) []ID {
	return append([]ID(nil), p.byName[pkgmodel.LowerName(name)]...)
}

// GetRepository returns the opaque repository-origin value id was
// inserted with.
func (p *Pool) GetRepository(id ID) any { return p.repoOf[id] }

// SetPriority records id's repository priority (lower wins ties in
// policy).
func (p *Pool) SetPriority(id ID, priority int) { p.priorityOf[id] = priority }

// GetPriorityByID returns id's repository priority, defaulting to 0.
func (p *Pool) GetPriorityByID(id ID) int { return p.priorityOf[id] }

// AllPackageIDs returns every valid (non-sentinel) id in ascending
// order.
func (p *Pool) AllPackageIDs() []ID {
	ids := make([]ID, 0, len(p.entries)-1)
	for i := 1; i < len(p.entries); i++ {
		if p.entries[i].kind != entryPlaceholder {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// Len returns the number of valid entries in the pool.
func (p *Pool) Len() int { return len(p.AllPackageIDs()) }

func (p *Pool) normalizeCached(raw string) (string, error) {
	if n, ok := p.normalizedVersions[raw]; ok {
		return n, nil
	}
	n, err := semver.Normalize(raw)
	if err != nil {
		return "", err
	}
	p.normalizedVersions[raw] = n
	return n, nil
}

func (p *Pool) parseConstraintCached(text string) (semver.Constraint, error) {
	if c, ok := p.parsedConstraints[text]; ok {
		return c, nil
	}
	c, err := semver.ParseConstraints(text)
	if err != nil {
		return nil, err
	}
	p.parsedConstraints[text] = c
	return c, nil
}

func (p *Pool) eqConstraintFor(id ID) semver.Constraint {
	if c, ok := p.eqConstraints[id]; ok {
		return c
	}
	pkg := p.Package(id)
	if pkg == nil {
		return semver.MatchNone
	}
	c := semver.EqualTo(pkg.Version)
	p.eqConstraints[id] = c
	return c
}

// MatchesConstraint reports whether id's own version satisfies
// constraint (parsed from constraintText, or MatchAll if empty).
func (p *Pool) MatchesConstraint(id ID, constraintText string) bool {
	if constraintText == "" {
		return true
	}
	constraint, err := p.parseConstraintCached(constraintText)
	if err != nil {
		return false
	}
	return constraint.Matches(p.eqConstraintFor(id))
}

// matchesProvidedConstraint checks whether a provided/replaced
// constraint string (e.g. "1.0.0" in `provide: {Iface: "1.0.0"}`)
// satisfies the requesting constraint. Falls back to exact-version
// equality if the provided string isn't itself constraint-parseable.
func (p *Pool) matchesProvidedConstraint(required semver.Constraint, providedText string) bool {
	provided, err := p.parseConstraintCached(providedText)
	if err != nil {
		norm, nerr := p.normalizeCached(providedText)
		if nerr != nil {
			return false
		}
		return required.Matches(semver.EqualTo(norm))
	}
	return required.Matches(provided)
}

// WhatProvides returns every id whose own name is name, plus every id
// whose provide/replace entry for name satisfies constraintText (pass
// "" or "*" for MatchAll). Ids named name come first, then providers
// and replacers; results are de-duplicated.
func (p *Pool) WhatProvides(name, constraintText string) []ID {
	return p.whatProvides(name, constraintText, true)
}

// WhatProvidesDirectOnly returns only ids whose own name is name,
// excluding providers/replacers.
func (p *Pool) WhatProvidesDirectOnly(name, constraintText string) []ID {
	return p.whatProvides(name, constraintText, false)
}

func (p *Pool) whatProvides(name, constraintText string, includeProvidersAndReplacers bool) []ID {
	name = pkgmodel.LowerName(name)
	var required semver.Constraint
	if constraintText == "" || constraintText == "*" {
		required = semver.MatchAll
	} else {
		var err error
		required, err = p.parseConstraintCached(constraintText)
		if err != nil {
			return nil
		}
	}

	seen := make(map[ID]bool)
	var out []ID
	add := func(id ID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, id := range p.byName[name] {
		if required.Matches(p.eqConstraintFor(id)) {
			add(id)
		}
	}

	if includeProvidersAndReplacers {
		for _, id := range p.providers[name] {
			if seen[id] {
				continue
			}
			pkg, alias := p.Entry(id)
			var provide, replace *pkgmodel.OrderedMap
			if pkg != nil {
				if strings.EqualFold(pkg.Name, name) {
					continue
				}
				provide, replace = pkg.Provide, pkg.Replace
			} else if alias != nil {
				if strings.EqualFold(alias.Name(), name) {
					continue
				}
				provide, replace = alias.Provide, alias.Replace
			}
			if v, ok := provide.Get(name); ok && p.matchesProvidedConstraint(required, v) {
				add(id)
				continue
			}
			if v, ok := replace.Get(name); ok && p.matchesProvidedConstraint(required, v) {
				add(id)
			}
		}
	}

	return out
}
