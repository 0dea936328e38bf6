// Package optimizer implements the pre-solve pool pruning pass
// described in spec.md 4.D, grounded on the Rust reference
// implementation's phpx-pm/src/solver/pool_optimizer.rs.
package optimizer

import (
	"sort"
	"strings"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/policy"
	"github.com/shyim/pox-sub000/internal/pool"
	"github.com/shyim/pox-sub000/internal/request"
)

// Optimizer prunes a pool before it reaches the rule generator. It
// never mutates its input pool; Optimize returns a fresh one.
type Optimizer struct {
	policy *policy.Policy

	irremovable       map[pool.ID]bool
	requireConstraints map[string]map[string]bool
	conflictConstraints map[string]map[string]bool
	aliasesPerPackage  map[pool.ID][]pool.ID
	packagesToRemove   map[pool.ID]bool
}

// New returns an Optimizer that breaks ties with pol.
func New(pol *policy.Policy) *Optimizer {
	return &Optimizer{policy: pol}
}

// Optimize prunes src given req and returns a new, smaller pool.
func (o *Optimizer) Optimize(req *request.Request, src *pool.Pool) *pool.Pool {
	o.irremovable = make(map[pool.ID]bool)
	o.requireConstraints = make(map[string]map[string]bool)
	o.conflictConstraints = make(map[string]map[string]bool)
	o.aliasesPerPackage = make(map[pool.ID][]pool.ID)
	o.packagesToRemove = make(map[pool.ID]bool)

	o.prepare(req, src)
	o.optimizeByIdenticalDependencies(src)
	o.optimizeImpossiblePackagesAway(req, src)

	return o.applyRemovals(src)
}

func (o *Optimizer) prepare(req *request.Request, src *pool.Pool) {
	for _, fixed := range req.FixedPackages {
		if id := findExact(src, fixed.Name, fixed.Version); id != 0 {
			o.markIrremovable(src, id)
		}
	}
	for _, locked := range req.LockedPackages {
		if id := findExact(src, locked.Name, locked.Version); id != 0 {
			o.markIrremovable(src, id)
		}
	}

	for _, id := range src.AllPackageIDs() {
		if base, ok := src.GetAliasBase(id); ok {
			o.aliasesPerPackage[base] = append(o.aliasesPerPackage[base], id)
		}
	}

	for _, id := range src.AllPackageIDs() {
		pkg := src.Package(id)
		if pkg == nil || src.IsAlias(id) {
			continue
		}
		if o.isSoleProvider(src, pkg, id) {
			o.markIrremovable(src, id)
		}
	}

	for _, nc := range req.AllRequires() {
		o.extractRequire(nc.Name, nc.Constraint)
	}

	for _, id := range src.AllPackageIDs() {
		pkg, alias := src.Entry(id)
		target := pkg
		if alias != nil {
			target = alias.Base
		}
		if target == nil {
			continue
		}
		target.Require.Each(func(name, c string) { o.extractRequire(name, c) })
		target.Conflict.Each(func(name, c string) { o.extractConflict(name, c) })
	}
}

func (o *Optimizer) isSoleProvider(src *pool.Pool, pkg *pkgmodel.Package, id pool.ID) bool {
	sole := false
	pkg.Replace.Each(func(name, _ string) {
		if sole {
			return
		}
		providers := src.WhatProvides(name, "")
		if len(providers) == 0 || (len(providers) == 1 && providers[0] == id) {
			sole = true
		}
	})
	if sole {
		return true
	}
	pkg.Provide.Each(func(name, _ string) {
		if sole {
			return
		}
		providers := src.WhatProvides(name, "")
		if len(providers) == 0 || (len(providers) == 1 && providers[0] == id) {
			sole = true
		}
	})
	return sole
}

func (o *Optimizer) markIrremovable(src *pool.Pool, id pool.ID) {
	o.irremovable[id] = true
	for _, alias := range o.aliasesPerPackage[id] {
		o.irremovable[alias] = true
	}
	if base, ok := src.GetAliasBase(id); ok {
		o.irremovable[base] = true
		for _, alias := range o.aliasesPerPackage[base] {
			o.irremovable[alias] = true
		}
	}
}

func (o *Optimizer) extractRequire(name, constraint string) {
	name = pkgmodel.LowerName(name)
	set, ok := o.requireConstraints[name]
	if !ok {
		set = make(map[string]bool)
		o.requireConstraints[name] = set
	}
	for _, part := range expandDisjunctive(constraint) {
		set[part] = true
	}
}

func (o *Optimizer) extractConflict(name, constraint string) {
	name = pkgmodel.LowerName(name)
	set, ok := o.conflictConstraints[name]
	if !ok {
		set = make(map[string]bool)
		o.conflictConstraints[name] = set
	}
	for _, part := range expandDisjunctive(constraint) {
		set[part] = true
	}
}

// expandDisjunctive splits "A || B" / "A|B" into ["A", "B"] so each
// OR-branch keeps its own best candidate; a conjunctive or single
// constraint is returned unchanged.
func expandDisjunctive(constraint string) []string {
	if parts := splitNonEmpty(constraint, "||"); len(parts) > 1 {
		return parts
	}
	if parts := splitNonEmpty(constraint, "|"); len(parts) > 1 {
		return parts
	}
	return []string{constraint}
}

func splitNonEmpty(s, sep string) []string {
	raw := strings.Split(s, sep)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func findExact(src *pool.Pool, name, version string) pool.ID {
	ids := src.WhatProvidesDirectOnly(name, "="+version)
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}

// optimizeByIdenticalDependencies implements pass 1: group
// non-irremovable, non-alias ids by (name, matched-constraint set,
// structural dependency hash) and keep only the policy's preferred
// candidate(s) from each group. An id that matches no active
// constraint is kept only when no id of the same name formed a group;
// otherwise it is removed.
func (o *Optimizer) optimizeByIdenticalDependencies(src *pool.Pool) {
	type groupKey struct {
		name       string
		matchedSet string
		depHash    string
	}
	groups := make(map[groupKey][]pool.ID)
	matched := make(map[pool.ID]bool)

	for _, id := range src.AllPackageIDs() {
		if o.irremovable[id] || src.IsAlias(id) {
			continue
		}
		pkg := src.Package(id)
		if pkg == nil {
			continue
		}
		o.packagesToRemove[id] = true

		var matchedConstraints []string
		if set, ok := o.requireConstraints[pkg.Name]; ok {
			for c := range set {
				if src.MatchesConstraint(id, c) {
					matchedConstraints = append(matchedConstraints, "R:"+c)
				}
			}
		}
		if set, ok := o.conflictConstraints[pkg.Name]; ok {
			for c := range set {
				if src.MatchesConstraint(id, c) {
					matchedConstraints = append(matchedConstraints, "C:"+c)
				}
			}
		}
		if len(matchedConstraints) == 0 {
			continue
		}
		sort.Strings(matchedConstraints)

		key := groupKey{
			name:       pkg.Name,
			matchedSet: strings.Join(matchedConstraints, "\x1f"),
			depHash:    structuralHash(pkg),
		}
		groups[key] = append(groups[key], id)
		matched[id] = true
	}

	groupedNames := make(map[string]bool)
	for key, ids := range groups {
		groupedNames[key.name] = true
		best := o.policy.SelectPreferredForOptimization(src, ids)
		for _, id := range best {
			o.keep(id)
		}
	}

	// A package that matched no active constraint should only survive
	// unconditionally when no version of its name produced a group at
	// all - otherwise some sibling version of the same name was part
	// of the narrowed problem space and this id's absence from it is
	// meaningful, not just an artifact of it having nothing to match.
	for _, id := range src.AllPackageIDs() {
		if o.irremovable[id] || src.IsAlias(id) {
			continue
		}
		if matched[id] {
			continue
		}
		pkg := src.Package(id)
		if pkg == nil {
			continue
		}
		if !groupedNames[pkg.Name] {
			o.keep(id)
		}
	}
}

func (o *Optimizer) keep(id pool.ID) {
	delete(o.packagesToRemove, id)
}

func structuralHash(pkg *pkgmodel.Package) string {
	var b strings.Builder
	writeMap := func(tag string, m *pkgmodel.OrderedMap) {
		var entries []string
		m.Each(func(name, value string) {
			entries = append(entries, name+"="+value)
		})
		sort.Strings(entries)
		b.WriteString(tag)
		b.WriteString(strings.Join(entries, ","))
		b.WriteByte(';')
	}
	writeMap("req:", pkg.Require)
	writeMap("conf:", pkg.Conflict)
	writeMap("repl:", pkg.Replace)
	writeMap("prov:", pkg.Provide)
	return b.String()
}

// optimizeImpossiblePackagesAway implements pass 2: a locked
// package's own requirements prune alternatives of its dependencies
// that the locked version could never have allowed.
func (o *Optimizer) optimizeImpossiblePackagesAway(req *request.Request, src *pool.Pool) {
	for _, locked := range req.LockedPackages {
		locked.Require.Each(func(depName, constraintText string) {
			depName = pkgmodel.LowerName(depName)
			for _, id := range src.PackagesByName(depName) {
				if o.irremovable[id] || src.IsAlias(id) {
					continue
				}
				if _, stillRemoving := o.packagesToRemove[id]; stillRemoving {
					continue // already gone, no need to re-check
				}
				if !src.MatchesConstraint(id, constraintText) {
					o.packagesToRemove[id] = true
				}
			}
		})
	}
}

// isPlatformPackage reports whether name identifies a platform package
// (the runtime itself, an extension, a system library, or a
// composer-plugin-api style virtual capability) - packages whose
// presence is axiomatic rather than subject to the stability floor.
func isPlatformPackage(name string) bool {
	switch name {
	case "php", "php-64bit", "hhvm":
		return true
	}
	return strings.HasPrefix(name, "ext-") ||
		strings.HasPrefix(name, "lib-") ||
		strings.HasPrefix(name, "composer-")
}

// applyRemovals rebuilds a new pool in ascending id order, carrying
// over the source pool's minimum-stability floor and per-package
// stability flags, repository and priority metadata, re-emitting
// aliases only when their base survives. Platform packages and
// packages bearing a replace/provide entry bypass the stability
// filter on the way in, matching the original implementation's
// add_package_arc_bypass_stability split; every other survivor goes
// through a stability-checked Add so the new pool keeps enforcing the
// same floor the source pool did.
func (o *Optimizer) applyRemovals(src *pool.Pool) *pool.Pool {
	dst := pool.New(src.MinimumStability())
	for name, st := range src.StabilityFlags() {
		dst.AddStabilityFlag(name, st)
	}

	idMap := make(map[pool.ID]pool.ID)

	for _, id := range src.AllPackageIDs() {
		if src.IsAlias(id) {
			continue
		}
		if o.packagesToRemove[id] {
			continue
		}
		pkg := src.Package(id)

		bypassStability := isPlatformPackage(pkg.Name) || pkg.Replace.Len() != 0 || pkg.Provide.Len() != 0

		var newID pool.ID
		if bypassStability {
			newID = dst.AddBypassStability(pkg, src.GetRepository(id))
		} else {
			newID = dst.Add(pkg, src.GetRepository(id))
			if newID == 0 {
				// Shouldn't happen: pkg already survived the same
				// floor in src. Fall back to bypass rather than
				// silently dropping a package the caller expects.
				newID = dst.AddBypassStability(pkg, src.GetRepository(id))
			}
		}
		dst.SetPriority(newID, src.GetPriorityByID(id))
		idMap[id] = newID
	}

	for _, id := range src.AllPackageIDs() {
		base, isAlias := src.GetAliasBase(id)
		if !isAlias {
			continue
		}
		newBase, ok := idMap[base]
		if !ok {
			continue // base was pruned; alias cannot survive without it
		}
		_, alias := src.Entry(id)
		newID := dst.AddAliasPackage(alias, src.GetRepository(id), newBase)
		dst.SetPriority(newID, src.GetPriorityByID(id))
	}

	return dst
}
