// This file defines the JSON document pox-resolve reads from disk (or
// stdin) and turns into the pool.Pool / request.Request / policy.Policy
// trio the solver needs. It plays the role the teacher's Gopkg.toml/
// Gopkg.lock pair plays for dep ensure, except the whole universe of
// candidate packages is given up front rather than discovered by
// walking import graphs, since this tool only resolves — it never
// scans source.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/policy"
	"github.com/shyim/pox-sub000/internal/pool"
	"github.com/shyim/pox-sub000/internal/repository"
	"github.com/shyim/pox-sub000/internal/request"
	"github.com/shyim/pox-sub000/internal/semver"
	"github.com/shyim/pox-sub000/internal/solver"
)

// resultPackageDoc is one installed package in the printed result.
type resultPackageDoc struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	PrettyVersion string `json:"pretty_version"`
}

// resultAliasDoc is one installed alias in the printed result.
type resultAliasDoc struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	PrettyVersion string `json:"pretty_version"`
}

// resultDoc is the JSON shape pox-resolve prints on a successful solve.
type resultDoc struct {
	Packages []resultPackageDoc `json:"packages"`
	Aliases  []resultAliasDoc   `json:"aliases,omitempty"`
}

// packageDocsFrom converts a SolverResult into its printable form.
func packageDocsFrom(result *solver.SolverResult) resultDoc {
	doc := resultDoc{Packages: make([]resultPackageDoc, 0, len(result.Packages))}
	for _, pkg := range result.Packages {
		doc.Packages = append(doc.Packages, resultPackageDoc{
			Name:          pkg.Name,
			Version:       pkg.Version,
			PrettyVersion: pkg.PrettyVersion,
		})
	}
	for _, alias := range result.Aliases {
		doc.Aliases = append(doc.Aliases, resultAliasDoc{
			Name:          alias.Name(),
			Version:       alias.Version,
			PrettyVersion: alias.PrettyVersion,
		})
	}
	return doc
}

// packageDoc is one candidate package entry in the input document.
type packageDoc struct {
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	Repository string            `json:"repository,omitempty"`
	Priority   int               `json:"priority,omitempty"`
	Require    map[string]string `json:"require,omitempty"`
	RequireDev map[string]string `json:"require_dev,omitempty"`
	Conflict   map[string]string `json:"conflict,omitempty"`
	Provide    map[string]string `json:"provide,omitempty"`
	Replace    map[string]string `json:"replace,omitempty"`
}

// rootDoc is the root project's own requirements: the thing being
// resolved for, never itself a candidate in the pool.
type rootDoc struct {
	Name       string            `json:"name,omitempty"`
	Version    string            `json:"version,omitempty"`
	Require    map[string]string `json:"require,omitempty"`
	RequireDev map[string]string `json:"require_dev,omitempty"`
}

// document is the full shape of a pox-resolve input file.
type document struct {
	MinimumStability  string            `json:"minimum_stability,omitempty"`
	PreferLowest      bool              `json:"prefer_lowest,omitempty"`
	PreferredVersions map[string]string `json:"preferred_versions,omitempty"`
	Packages          []packageDoc      `json:"packages"`
	Root              rootDoc           `json:"root"`
	Locked            []string          `json:"locked,omitempty"` // "name@version" pairs
}

// decodeDocument parses a pox-resolve input document from r.
func decodeDocument(r io.Reader) (*document, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse resolve document")
	}
	return &doc, nil
}

// setConstraints copies a name->constraint map into an OrderedMap in
// sorted key order, the one place map iteration order would otherwise
// leak into the pool: JSON objects carry no ordering guarantee, so
// sorting here is what keeps two runs over the same document
// byte-identical.
func setConstraints(m *pkgmodel.OrderedMap, raw map[string]string) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.Set(name, raw[name])
	}
}

// build turns the document into the pool, request and policy the
// solver needs, along with the pool IDs of any packages named under
// "locked" so the caller can mark them via request.Lock. When cache is
// non-nil, every package declaration is memoized there so a repeated
// resolve against an unchanged document doesn't need a fresh metadata
// fetch behind it next time; a miss populates the entry, a hit is left
// untouched rather than rewritten.
func (d *document) build(cache *repository.Cache) (*pool.Pool, *request.Request, *policy.Policy, error) {
	minStability := semver.StabilityStable
	if d.MinimumStability != "" {
		st, err := semver.ParseStabilityFlag(d.MinimumStability)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "invalid minimum_stability %q", d.MinimumStability)
		}
		minStability = st
	}

	pl := pool.New(minStability)
	byKey := make(map[string]pool.ID, len(d.Packages))

	for _, pd := range d.Packages {
		if pd.Name == "" || pd.Version == "" {
			return nil, nil, nil, errors.New("every package requires a name and version")
		}
		norm, err := semver.Normalize(pd.Version)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "package %s has an invalid version %q", pd.Name, pd.Version)
		}
		pkg := pkgmodel.NewPackage(pd.Name, pd.Version, norm)
		setConstraints(pkg.Require, pd.Require)
		setConstraints(pkg.RequireDev, pd.RequireDev)
		setConstraints(pkg.Conflict, pd.Conflict)
		setConstraints(pkg.Provide, pd.Provide)
		setConstraints(pkg.Replace, pd.Replace)

		if cache != nil {
			if _, hit, err := cache.Get(pd.Name); err == nil && !hit {
				if raw, err := json.Marshal(pd); err == nil {
					_ = cache.Put(pd.Name, time.Now().Unix(), raw)
				}
			}
		}

		var repo any
		if pd.Repository != "" {
			repo = pd.Repository
		}
		id := pl.Add(pkg, repo)
		if pd.Priority != 0 {
			pl.SetPriority(id, pd.Priority)
		}
		byKey[fmt.Sprintf("%s@%s", pkg.Name, pkg.Version)] = id
		byKey[fmt.Sprintf("%s@%s", pkg.Name, pd.Version)] = id
	}

	req := request.New()
	names := make([]string, 0, len(d.Root.Require))
	for name := range d.Root.Require {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.Require(name, d.Root.Require[name])
	}
	devNames := make([]string, 0, len(d.Root.RequireDev))
	for name := range d.Root.RequireDev {
		devNames = append(devNames, name)
	}
	sort.Strings(devNames)
	for _, name := range devNames {
		req.RequireDev(name, d.Root.RequireDev[name])
	}

	for _, key := range d.Locked {
		id, ok := byKey[key]
		if !ok {
			return nil, nil, nil, errors.Errorf("locked entry %q does not match any package in the document", key)
		}
		req.Lock(pl.Package(id))
	}

	pol := policy.New()
	pol.PreferLowest = d.PreferLowest
	prefNames := make([]string, 0, len(d.PreferredVersions))
	for name := range d.PreferredVersions {
		prefNames = append(prefNames, name)
	}
	sort.Strings(prefNames)
	for _, name := range prefNames {
		pol.WithPreferredVersion(name, d.PreferredVersions[name])
	}

	return pl, req, pol, nil
}
