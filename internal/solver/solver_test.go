package solver

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

func TestSolverInstallsTransitiveDependency(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/a", "1.0.0")
	a.Require.Set("vendor/b", "^1.0")
	pl.Add(a, "repo")
	pl.Add(mustPkg(t, "vendor/b", "1.0.0"), "repo")

	req := request.New().Require("vendor/a", "^1.0")

	result, problems := New(pl, policy.New()).Solve(req)
	if problems != nil {
		t.Fatalf("unexpected failure: %v", problems)
	}
	if len(result.Packages) != 2 {
		t.Fatalf("expected a and b installed, got %d packages: %+v", len(result.Packages), result.Packages)
	}
}

func TestSolverMissingDependencyIsUnsolvable(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/a", "1.0.0")
	a.Require.Set("vendor/missing", "^1.0")
	pl.Add(a, "repo")

	req := request.New().Require("vendor/a", "^1.0")

	_, problems := New(pl, policy.New()).Solve(req)
	if problems == nil {
		t.Fatal("expected an unsolvable problem set")
	}
}

func TestSolverConflictingConstraintsAreUnsolvable(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/a", "1.0.0")
	a.Require.Set("vendor/b", "^1.0")
	pl.Add(a, "repo")

	c := mustPkg(t, "vendor/c", "1.0.0")
	c.Require.Set("vendor/b", "^2.0")
	pl.Add(c, "repo")

	pl.Add(mustPkg(t, "vendor/b", "1.0.0"), "repo")

	req := request.New().Require("vendor/a", "^1.0").Require("vendor/c", "^1.0")

	_, problems := New(pl, policy.New()).Solve(req)
	if problems == nil {
		t.Fatal("expected a and c's incompatible requirements on b to be unsolvable")
	}
}

func TestSolverPrefersHighestVersionByDefault(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	pl.Add(mustPkg(t, "vendor/a", "1.0.0"), "repo")
	pl.Add(mustPkg(t, "vendor/a", "2.0.0"), "repo")

	req := request.New().Require("vendor/a", "*")

	result, problems := New(pl, policy.New()).Solve(req)
	if problems != nil {
		t.Fatalf("unexpected failure: %v", problems)
	}
	if len(result.Packages) != 1 || result.Packages[0].Version != "2.0.0.0" {
		t.Fatalf("expected highest version 2.0.0.0, got %+v", result.Packages)
	}
}

func TestSolverPrefersLowestWhenConfigured(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	pl.Add(mustPkg(t, "vendor/a", "1.0.0"), "repo")
	pl.Add(mustPkg(t, "vendor/a", "2.0.0"), "repo")

	pol := policy.New()
	pol.PreferLowest = true

	req := request.New().Require("vendor/a", "*")

	result, problems := New(pl, pol).Solve(req)
	if problems != nil {
		t.Fatalf("unexpected failure: %v", problems)
	}
	if len(result.Packages) != 1 || result.Packages[0].Version != "1.0.0.0" {
		t.Fatalf("expected lowest version 1.0.0.0, got %+v", result.Packages)
	}
}

func TestSolverDiamondConflictIsUnsolvable(t *testing.T) {
	pl := pool.New(semver.StabilityDev)

	root := mustPkg(t, "vendor/root", "1.0.0")
	root.Require.Set("vendor/x", "^1.0")
	root.Require.Set("vendor/y", "^1.0")
	pl.Add(root, "repo")

	x := mustPkg(t, "vendor/x", "1.0.0")
	x.Require.Set("vendor/shared", "^2.0")
	pl.Add(x, "repo")

	y := mustPkg(t, "vendor/y", "1.0.0")
	y.Require.Set("vendor/shared", "^1.0")
	pl.Add(y, "repo")

	pl.Add(mustPkg(t, "vendor/shared", "1.0.0"), "repo")
	pl.Add(mustPkg(t, "vendor/shared", "2.0.0"), "repo")

	req := request.New().Require("vendor/root", "^1.0")

	_, problems := New(pl, policy.New()).Solve(req)
	if problems == nil {
		t.Fatal("expected x and y's conflicting requirements on shared to be unsolvable (only one version of shared may be installed)")
	}
}

func TestSolverNoOptimizationStillResolves(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/a", "1.0.0")
	a.Require.Set("vendor/b", "^1.0")
	pl.Add(a, "repo")
	pl.Add(mustPkg(t, "vendor/b", "1.0.0"), "repo")

	req := request.New().Require("vendor/a", "^1.0")

	result, problems := New(pl, policy.New()).WithOptimization(false).Solve(req)
	if problems != nil {
		t.Fatalf("unexpected failure: %v", problems)
	}
	if len(result.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(result.Packages))
	}
}
