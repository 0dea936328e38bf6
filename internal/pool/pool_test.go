package pool

import (
	"testing"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/semver"
)

func mustPkg(t *testing.T, name, version string) *pkgmodel.Package {
	t.Helper()
	n, err := semver.Normalize(version)
	if err != nil {
		t.Fatalf("normalize %q: %v", version, err)
	}
	return pkgmodel.NewPackage(name, version, n)
}

func TestIDStability(t *testing.T) {
	p := New(semver.StabilityStable)
	a := p.Add(mustPkg(t, "vendor/a", "1.0.0"), "repo1")
	b := p.Add(mustPkg(t, "vendor/b", "1.0.0"), "repo1")

	if a == 0 || b == 0 {
		t.Fatalf("expected non-zero ids, got a=%d b=%d", a, b)
	}
	if p.Package(a).Name != "vendor/a" {
		t.Fatalf("id %d no longer refers to vendor/a", a)
	}
	p.Add(mustPkg(t, "vendor/c", "1.0.0"), "repo1")
	if p.Package(a).Name != "vendor/a" || p.Package(b).Name != "vendor/b" {
		t.Fatalf("adding a third package changed earlier ids")
	}
}

func TestStabilityFilter(t *testing.T) {
	p := New(semver.StabilityStable)
	before := p.Len()
	id := p.Add(mustPkg(t, "vendor/a", "1.0.0-beta1"), "repo1")
	if id != 0 {
		t.Fatalf("expected beta package to be rejected under minimum_stability=stable, got id %d", id)
	}
	if p.Len() != before {
		t.Fatalf("rejected add should not change pool length")
	}
}

func TestWhatProvidesMonotonicity(t *testing.T) {
	p := New(semver.StabilityStable)
	p.Add(mustPkg(t, "vendor/a", "1.0.0"), "repo1")
	p.Add(mustPkg(t, "vendor/a", "2.0.0"), "repo1")

	all := p.WhatProvides("vendor/a", "")
	narrow := p.WhatProvides("vendor/a", "^1.0")
	narrower := p.WhatProvides("vendor/a", "^1.0.1")

	if len(narrow) > len(all) {
		t.Fatalf("narrowing constraint should never grow the result set")
	}
	if len(narrower) > len(narrow) {
		t.Fatalf("narrowing constraint should never grow the result set")
	}
}

func TestProvideReplaceIndex(t *testing.T) {
	p := New(semver.StabilityStable)
	impl1 := mustPkg(t, "vendor/impl", "1.0.0")
	impl1.Provide.Set("vendor/iface", "1.0.0")
	impl2 := mustPkg(t, "vendor/impl", "2.0.0")
	impl2.Provide.Set("vendor/iface", "2.0.0")

	p.Add(impl1, "repo1")
	p.Add(impl2, "repo1")

	ids := p.WhatProvides("vendor/iface", "^1.0")
	if len(ids) != 1 {
		t.Fatalf("expected exactly one provider of vendor/iface matching ^1.0, got %d", len(ids))
	}
	if p.Package(ids[0]).Version != "1.0.0.0" {
		t.Fatalf("expected vendor/impl 1.0.0 to provide vendor/iface ^1.0, got version %s", p.Package(ids[0]).Version)
	}
}

func TestAliasSharesNameWithBase(t *testing.T) {
	p := New(semver.StabilityDev)
	base := mustPkg(t, "vendor/a", "dev-main")
	baseID := p.Add(base, "repo1")

	aliasID := p.AddAlias(baseID, "1.0.0.0", "1.0.0", true)
	if !p.IsAlias(aliasID) {
		t.Fatalf("expected alias id to report IsAlias")
	}
	if !p.IsRootPackageAlias(aliasID) {
		t.Fatalf("expected root-package alias flag to be set")
	}
	ids := p.PackagesByName("vendor/a")
	found := map[ID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[baseID] || !found[aliasID] {
		t.Fatalf("expected both base and alias under the shared name, got %v", ids)
	}
}
