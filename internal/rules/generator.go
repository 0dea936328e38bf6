package rules

import (
	"sort"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/pool"
	"github.com/shyim/pox-sub000/internal/request"
)

// Generator walks a pool and a request and emits the full rule set,
// in deterministic creation order.
type Generator struct {
	pool  *pool.Pool
	rules []*Rule
}

// NewGenerator returns a Generator bound to pool p.
func NewGenerator(p *pool.Pool) *Generator {
	return &Generator{pool: p}
}

func (g *Generator) add(r *Rule) *Rule {
	r.ID = len(g.rules)
	g.rules = append(g.rules, r)
	return r
}

func litFor(id pool.ID) Literal { return Literal(int32(id)) }

// Generate produces every rule for p given req, in the order:
// per-package requires/conflicts (ascending id, insertion-order deps),
// uniqueness clauses (sorted by name), root requires (manifest
// order), then fixed-package assertions.
func (g *Generator) Generate(req *request.Request) []*Rule {
	g.rules = nil

	ids := g.pool.AllPackageIDs()

	for _, id := range ids {
		pkg, alias := g.pool.Entry(id)
		if alias != nil {
			pkg = alias.Base
		}
		if pkg == nil {
			continue
		}
		pkg.Require.Each(func(name, constraint string) {
			g.emitRequires(id, name, constraint)
		})
		pkg.Conflict.Each(func(name, constraint string) {
			g.emitConflict(id, name, constraint)
		})
	}

	g.emitUniqueness(ids)

	for _, nc := range req.AllRequires() {
		g.emitRootRequire(nc.Name, nc.Constraint)
	}

	for _, fixed := range req.FixedPackages {
		g.emitFixed(fixed)
	}

	return g.rules
}

func (g *Generator) emitRequires(id pool.ID, name, constraint string) {
	targets := g.pool.WhatProvides(name, constraint)
	lits := make([]Literal, 0, len(targets)+1)
	lits = append(lits, litFor(id).Negate())
	for _, t := range targets {
		lits = append(lits, litFor(t))
	}
	g.add(&Rule{
		Type:            PackageRequires,
		Literals:        lits,
		RequirementName: name,
		RequirementText: constraint,
		SourceID:        int32(id),
	})
}

func (g *Generator) emitConflict(id pool.ID, name, constraint string) {
	targets := g.pool.WhatProvides(name, constraint)
	for _, t := range targets {
		if t == id {
			continue
		}
		g.add(&Rule{
			Type:            PackageConflict,
			Literals:        []Literal{litFor(id).Negate(), litFor(t).Negate()},
			RequirementName: name,
			RequirementText: constraint,
			SourceID:        int32(id),
		})
	}
}

func (g *Generator) emitUniqueness(ids []pool.ID) {
	byName := make(map[string][]pool.ID)
	for _, id := range ids {
		pkg := g.pool.Package(id)
		if pkg == nil {
			continue
		}
		byName[pkg.Name] = append(byName[pkg.Name], id)
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		group := byName[name]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if areLinkedAliasAndBase(g.pool, a, b) {
					continue
				}
				g.add(&Rule{
					Type:            SamePackage,
					Literals:        []Literal{litFor(a).Negate(), litFor(b).Negate()},
					RequirementName: name,
				})
			}
		}
	}
}

func areLinkedAliasAndBase(p *pool.Pool, a, b pool.ID) bool {
	if base, ok := p.GetAliasBase(a); ok && base == b {
		return true
	}
	if base, ok := p.GetAliasBase(b); ok && base == a {
		return true
	}
	return false
}

func (g *Generator) emitRootRequire(name, constraint string) {
	targets := g.pool.WhatProvides(name, constraint)
	lits := make([]Literal, len(targets))
	for i, t := range targets {
		lits[i] = litFor(t)
	}
	g.add(&Rule{
		Type:            RootRequire,
		Literals:        lits,
		RequirementName: name,
		RequirementText: constraint,
	})
}

func (g *Generator) emitFixed(pkg *pkgmodel.Package) {
	ids := g.pool.WhatProvidesDirectOnly(pkg.Name, "="+pkg.Version)
	if len(ids) == 0 {
		g.add(&Rule{Type: Fixed, Literals: nil, RequirementName: pkg.Name})
		return
	}
	g.add(&Rule{
		Type:            Fixed,
		Literals:        []Literal{litFor(ids[0])},
		RequirementName: pkg.Name,
	})
}
