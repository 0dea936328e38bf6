// Package policy implements the candidate ordering described in
// spec.md 4.E, grounded on the Rust reference implementation's
// pox-pm/src/solver/policy.rs.
package policy

import (
	"sort"
	"strings"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/pool"
	"github.com/shyim/pox-sub000/internal/semver"
)

// Policy configures how the solver and the optimizer break ties
// between candidates that can both satisfy a requirement.
type Policy struct {
	PreferStable           bool
	PreferLowest           bool
	PreferDevOverPrerelease bool
	PreferredVersions      map[string]string // lowercased name -> normalized version
}

// New returns the default policy: prefer stable, prefer highest.
func New() *Policy {
	return &Policy{PreferStable: true, PreferredVersions: make(map[string]string)}
}

// WithPreferredVersion pins name to an exact (normalized) version that
// wins ties whenever it's among the candidates.
func (p *Policy) WithPreferredVersion(name, version string) *Policy {
	if p.PreferredVersions == nil {
		p.PreferredVersions = make(map[string]string)
	}
	p.PreferredVersions[pkgmodel.LowerName(name)] = version
	return p
}

// SelectPreferred re-sorts candidates best-first, stably.
func (p *Policy) SelectPreferred(pl *pool.Pool, candidates []pool.ID) []pool.ID {
	return p.SelectPreferredForRequirement(pl, candidates, "")
}

// SelectPreferredForRequirement is SelectPreferred but also considers
// a same-vendor preference against requiredName.
func (p *Policy) SelectPreferredForRequirement(pl *pool.Pool, candidates []pool.ID, requiredName string) []pool.ID {
	if len(candidates) == 0 {
		return nil
	}

	byName := make(map[string][]pool.ID)
	var names []string
	for _, id := range candidates {
		pkg := pl.Package(id)
		if pkg == nil {
			continue
		}
		if _, ok := byName[pkg.Name]; !ok {
			names = append(names, pkg.Name)
		}
		byName[pkg.Name] = append(byName[pkg.Name], id)
	}
	sort.Strings(names)

	var result []pool.ID
	for _, name := range names {
		group := byName[name]
		sort.SliceStable(group, func(i, j int) bool {
			return p.less(pl, group[i], group[j], requiredName, true)
		})
		result = append(result, group...)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return p.less(pl, result[i], result[j], requiredName, false)
	})
	return result
}

// SelectBest returns the single best candidate, or 0 if candidates is
// empty.
func (p *Policy) SelectBest(pl *pool.Pool, candidates []pool.ID) pool.ID {
	sorted := p.SelectPreferred(pl, candidates)
	if len(sorted) == 0 {
		return 0
	}
	return sorted[0]
}

// SelectPreferredForOptimization groups candidates by name and returns
// only the best id from each group. The comparison ends in a pool-id
// tiebreak, so exactly one id per name is returned.
func (p *Policy) SelectPreferredForOptimization(pl *pool.Pool, candidates []pool.ID) []pool.ID {
	if len(candidates) == 0 {
		return nil
	}
	byName := make(map[string][]pool.ID)
	var names []string
	for _, id := range candidates {
		pkg := pl.Package(id)
		if pkg == nil {
			continue
		}
		if _, ok := byName[pkg.Name]; !ok {
			names = append(names, pkg.Name)
		}
		byName[pkg.Name] = append(byName[pkg.Name], id)
	}
	sort.Strings(names)

	var result []pool.ID
	for _, name := range names {
		group := byName[name]
		sort.SliceStable(group, func(i, j int) bool {
			return p.less(pl, group[i], group[j], "", true)
		})
		best := group[0]
		result = append(result, best)
		for _, id := range group[1:] {
			if p.tiedWithBest(pl, best, id) {
				result = append(result, id)
			} else {
				break
			}
		}
	}
	return result
}

func (p *Policy) tiedWithBest(pl *pool.Pool, best, candidate pool.ID) bool {
	return !p.less(pl, best, candidate, "", true) && !p.less(pl, candidate, best, "", true)
}

// less reports whether a should sort before b (a is preferred).
// ignoreReplace mirrors the reference's compare_by_priority's
// ignore_replace flag used for the within-name pass.
func (p *Policy) less(pl *pool.Pool, a, b pool.ID, requiredName string, ignoreReplace bool) bool {
	pa := pl.Package(a)
	pb := pl.Package(b)
	if pa == nil || pb == nil {
		return pa != nil
	}

	aRootAlias := pl.IsRootPackageAlias(a)
	bRootAlias := pl.IsRootPackageAlias(b)
	if aRootAlias != bRootAlias {
		return aRootAlias
	}

	if pa.Name == pb.Name {
		aAlias := pl.IsAlias(a)
		bAlias := pl.IsAlias(b)
		if aAlias != bAlias {
			return aAlias
		}
	}

	if !ignoreReplace {
		if replaces(pa, pb.Name) {
			return false // b (the original) is preferred
		}
		if replaces(pb, pa.Name) {
			return true
		}

		if requiredName != "" {
			vendor := vendorOf(requiredName)
			if vendor != "" {
				aSame := strings.HasPrefix(pa.Name, vendor+"/")
				bSame := strings.HasPrefix(pb.Name, vendor+"/")
				if aSame != bSame {
					return aSame
				}
			}
		}
	}

	prioA := pl.GetPriorityByID(a)
	prioB := pl.GetPriorityByID(b)
	if prioA != prioB {
		return prioA < prioB
	}

	if p.PreferStable {
		stabA := pa.Stability
		stabB := pb.Stability

		if p.PreferLowest && p.PreferDevOverPrerelease {
			aDev := stabA == semver.StabilityDev
			bDev := stabB == semver.StabilityDev
			aPre := isPrerelease(stabA)
			bPre := isPrerelease(stabB)
			if aDev && bPre {
				return true
			}
			if bDev && aPre {
				return false
			}
		}

		if stabA.Priority() != stabB.Priority() {
			return stabA.Priority() > stabB.Priority()
		}
	}

	if len(p.PreferredVersions) > 0 {
		if preferred, ok := p.PreferredVersions[pa.Name]; ok {
			aPref := versionsMatch(pa.Version, preferred)
			bPref := versionsMatch(pb.Version, preferred)
			if aPref != bPref {
				return aPref
			}
		}
	}

	cmp := semver.CompareVersions(pa.Version, pb.Version)
	if p.PreferLowest {
		if cmp != 0 {
			return cmp < 0
		}
	} else {
		if cmp != 0 {
			return cmp > 0
		}
	}

	return a < b
}

func isPrerelease(st semver.Stability) bool {
	return st == semver.StabilityAlpha || st == semver.StabilityBeta || st == semver.StabilityRC
}

func replaces(source *pkgmodel.Package, targetName string) bool {
	found := false
	source.Replace.Each(func(name, _ string) {
		if strings.EqualFold(name, targetName) {
			found = true
		}
	})
	return found
}

func vendorOf(name string) string {
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

func versionsMatch(version, preferred string) bool {
	return normalizeDigits(version) == normalizeDigits(preferred)
}

func normalizeDigits(v string) string {
	var b strings.Builder
	lastWasDigit := false
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			lastWasDigit = true
		} else if lastWasDigit {
			b.WriteByte('.')
			lastWasDigit = false
		}
	}
	return strings.Trim(b.String(), ".")
}
