package optimizer

import (
	"testing"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/policy"
	"github.com/shyim/pox-sub000/internal/pool"
	"github.com/shyim/pox-sub000/internal/request"
	"github.com/shyim/pox-sub000/internal/semver"
)

func mustPkg(t *testing.T, name, version string) *pkgmodel.Package {
	t.Helper()
	norm, err := semver.Normalize(version)
	if err != nil {
		t.Fatalf("normalize %q: %v", version, err)
	}
	return pkgmodel.NewPackage(name, version, norm)
}

func TestOptimizeKeepsOnlyMatchingVersions(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	pl.Add(mustPkg(t, "vendor/a", "1.0.0"), "repo")
	pl.Add(mustPkg(t, "vendor/a", "1.5.0"), "repo")
	pl.Add(mustPkg(t, "vendor/a", "2.0.0"), "repo")

	req := request.New().Require("vendor/a", "^1.0")

	opt := New(policy.New())
	out := opt.Optimize(req, pl)

	ids := out.PackagesByName("vendor/a")
	for _, id := range ids {
		v := out.Package(id).Version
		if v == "2.0.0.0" {
			t.Fatalf("expected 2.0.0.0 to be pruned away (doesn't satisfy ^1.0), found id %d", id)
		}
	}
	if len(ids) == 0 {
		t.Fatal("expected at least one matching version to survive")
	}
}

func TestOptimizeNeverDropsFixedPackage(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	fixed := mustPkg(t, "vendor/root", "1.0.0")
	fixed.Require.Set("vendor/a", "^9.0") // constraint no installed version can ever satisfy
	pl.Add(fixed, "repo")
	pl.Add(mustPkg(t, "vendor/a", "1.0.0"), "repo")

	req := request.New().Fix(fixed)

	opt := New(policy.New())
	out := opt.Optimize(req, pl)

	found := false
	for _, id := range out.PackagesByName("vendor/root") {
		if out.Package(id).Version == fixed.Version {
			found = true
		}
	}
	if !found {
		t.Fatal("fixed package must survive optimization even when its own requirement can't be met")
	}
}

func TestOptimizeImpossiblePrunesAgainstLockedRequirement(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	locked := mustPkg(t, "vendor/locked", "1.0.0")
	locked.Require.Set("vendor/b", "^1.0")
	pl.Add(locked, "repo")
	pl.Add(mustPkg(t, "vendor/b", "1.0.0"), "repo")
	pl.Add(mustPkg(t, "vendor/b", "2.0.0"), "repo")

	req := request.New().Lock(locked)

	opt := New(policy.New())
	out := opt.Optimize(req, pl)

	for _, id := range out.PackagesByName("vendor/b") {
		if out.Package(id).Version == "2.0.0.0" {
			t.Fatal("vendor/b 2.0.0.0 can never satisfy the locked package's ^1.0 requirement and should be pruned")
		}
	}
}
