package pkgmodel

import "github.com/shyim/pox-sub000/internal/semver"

// Package is the immutable record the pool indexes and the rule
// generator walks. A Package is never mutated after it is built; it is
// safe to share by pointer across every index that references it (by
// name, by each provide/replace target, and as an alias's base).
type Package struct {
	Name          string // lowercased, used for all indexing
	PrettyName    string
	Version       string // normalized
	PrettyVersion string // raw, as seen in the source manifest
	Stability     semver.Stability

	Require     *OrderedMap // name -> constraint string
	RequireDev  *OrderedMap
	Conflict    *OrderedMap
	Provide     *OrderedMap
	Replace     *OrderedMap

	Type string

	// BranchAlias mirrors extra.branch-alias: a development branch
	// claiming a numeric identity for constraint matching purposes.
	BranchAlias string
}

// NewPackage returns a Package with all dependency maps initialized,
// ready for Set calls in manifest order.
func NewPackage(prettyName, prettyVersion, normalizedVersion string) *Package {
	st := stabilityOf(normalizedVersion)
	return &Package{
		Name:          LowerName(prettyName),
		PrettyName:    prettyName,
		Version:       normalizedVersion,
		PrettyVersion: prettyVersion,
		Stability:     st,
		Require:       NewOrderedMap(),
		RequireDev:    NewOrderedMap(),
		Conflict:      NewOrderedMap(),
		Provide:       NewOrderedMap(),
		Replace:       NewOrderedMap(),
	}
}

func stabilityOf(normalizedVersion string) semver.Stability {
	st, err := semver.ParseStability(normalizedVersion)
	if err != nil {
		return semver.StabilityStable
	}
	return st
}

// AliasPackage is a thin wrapper referencing a base package with an
// overridden version. It shares the base's dependency maps (aliases
// transform only provide/replace entries whose value is literally
// "self.version").
type AliasPackage struct {
	Base          *Package
	Version       string
	PrettyVersion string
	IsRootAlias   bool

	// Provide/Replace override the base's, with "self.version" values
	// rewritten to Version at construction time.
	Provide *OrderedMap
	Replace *OrderedMap
}

// Name proxies to the base package's lowercased name: an alias always
// shares its base's name in every index.
func (a *AliasPackage) Name() string { return a.Base.Name }

// PrettyName proxies to the base package's display name.
func (a *AliasPackage) PrettyName() string { return a.Base.PrettyName }

const selfVersionSentinel = "self.version"

// NewAliasPackage builds an alias of base at the given normalized
// version, rewriting any "self.version" provide/replace values to the
// alias's own version as required by the data model.
func NewAliasPackage(base *Package, version, prettyVersion string, isRootAlias bool) *AliasPackage {
	a := &AliasPackage{
		Base:          base,
		Version:       version,
		PrettyVersion: prettyVersion,
		IsRootAlias:   isRootAlias,
		Provide:       NewOrderedMap(),
		Replace:       NewOrderedMap(),
	}
	base.Provide.Each(func(name, value string) {
		if value == selfVersionSentinel {
			value = version
		}
		a.Provide.Set(name, value)
	})
	base.Replace.Each(func(name, value string) {
		if value == selfVersionSentinel {
			value = version
		}
		a.Replace.Set(name, value)
	})
	return a
}
