package policy

import (
	"testing"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/pool"
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

func TestSelectPreferredPicksHighestStable(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	low := mustPkg(t, "vendor/pkg", "1.0.0")
	high := mustPkg(t, "vendor/pkg", "2.0.0")
	beta := mustPkg(t, "vendor/pkg", "3.0.0-beta1")

	idLow := pl.Add(low, "repo")
	idHigh := pl.Add(high, "repo")
	idBeta := pl.Add(beta, "repo")

	pol := New()
	best := pol.SelectBest(pl, []pool.ID{idLow, idHigh, idBeta})
	if best != idHigh {
		t.Fatalf("expected stable 2.0.0 (id %d) to win over prerelease 3.0.0-beta1, got id %d", idHigh, best)
	}
}

func TestSelectPreferredLowest(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	low := mustPkg(t, "vendor/pkg", "1.0.0")
	high := mustPkg(t, "vendor/pkg", "2.0.0")
	idLow := pl.Add(low, "repo")
	idHigh := pl.Add(high, "repo")

	pol := New()
	pol.PreferLowest = true
	best := pol.SelectBest(pl, []pool.ID{idLow, idHigh})
	if best != idLow {
		t.Fatalf("expected lowest version to win, got id %d want %d", best, idLow)
	}
}

func TestSelectPreferredRepoPriority(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/pkg", "1.0.0")
	b := mustPkg(t, "vendor/pkg", "1.0.0")
	idA := pl.Add(a, "repoA")
	idB := pl.Add(b, "repoB")
	pl.SetPriority(idA, 5)
	pl.SetPriority(idB, 1)

	pol := New()
	best := pol.SelectBest(pl, []pool.ID{idA, idB})
	if best != idB {
		t.Fatalf("expected lower-priority-number repo to win, got id %d want %d", best, idB)
	}
}

func TestSelectPreferredPinnedVersion(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/pkg", "1.0.0")
	b := mustPkg(t, "vendor/pkg", "2.0.0")
	idA := pl.Add(a, "repo")
	idB := pl.Add(b, "repo")

	pol := New().WithPreferredVersion("vendor/pkg", "1.0.0.0")
	best := pol.SelectBest(pl, []pool.ID{idA, idB})
	if best != idA {
		t.Fatalf("expected pinned 1.0.0 to win over higher 2.0.0, got id %d want %d", best, idA)
	}
}

func TestSelectPreferredPoolIDTiebreak(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/pkg", "1.0.0")
	b := mustPkg(t, "vendor/pkg", "1.0.0")
	idA := pl.Add(a, "repo")
	idB := pl.Add(b, "repo")

	pol := New()
	best := pol.SelectBest(pl, []pool.ID{idB, idA})
	if best != idA {
		t.Fatalf("expected lower pool id to win a full tie, got id %d want %d", best, idA)
	}
}

func TestSelectPreferredForOptimizationKeepsOnlyBest(t *testing.T) {
	pl := pool.New(semver.StabilityDev)
	a := mustPkg(t, "vendor/pkg", "1.0.0")
	b := mustPkg(t, "vendor/pkg", "1.0.0")
	c := mustPkg(t, "vendor/pkg", "2.0.0")
	idA := pl.Add(a, "repo")
	idB := pl.Add(b, "repo")
	idC := pl.Add(c, "repo")

	pol := New()
	kept := pol.SelectPreferredForOptimization(pl, []pool.ID{idA, idB, idC})
	if len(kept) != 1 {
		t.Fatalf("expected only the single best-version group member, got %v", kept)
	}
	if kept[0] != idC {
		t.Fatalf("expected highest version id %d, got %d", idC, kept[0])
	}
}
