package lockfile

import (
	"path/filepath"
	"testing"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
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

func TestContentHashIsOrderIndependent(t *testing.T) {
	a := map[string]interface{}{
		"name":    "vendor/app",
		"require": map[string]string{"vendor/a": "^1.0", "vendor/b": "^2.0"},
	}
	b := map[string]interface{}{
		"require": map[string]string{"vendor/b": "^2.0", "vendor/a": "^1.0"},
		"name":    "vendor/app",
	}

	if ContentHash(a) != ContentHash(b) {
		t.Fatal("content hash must not depend on map construction order")
	}
}

func TestContentHashIgnoresUnrelatedKeys(t *testing.T) {
	a := map[string]interface{}{"name": "vendor/app"}
	b := map[string]interface{}{"name": "vendor/app", "description": "something unrelated"}

	if ContentHash(a) != ContentHash(b) {
		t.Fatal("content hash must only consider the fixed set of manifest keys")
	}
}

func TestContentHashEscapesSlashes(t *testing.T) {
	hash := ContentHash(map[string]interface{}{"name": "vendor/app-with/slashes"})
	if hash == "" {
		t.Fatal("expected a non-empty hash")
	}
	// We can't assert the literal digest here without hardcoding MD5
	// output, so check the escaping on the encoded input directly, then
	// confirm two different slash placements hash differently.
	if got := string(encodeStable(map[string]interface{}{"name": "vendor/app"})); got != `{"name":"vendor\/app"}` {
		t.Fatalf("expected slashes escaped in the hashed encoding, got %s", got)
	}
	other := ContentHash(map[string]interface{}{"name": "vendor/appwith/slashes"})
	if hash == other {
		t.Fatal("expected differing names to produce differing hashes")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pox.lock")

	manifest := map[string]interface{}{"name": "vendor/app"}
	packages := []*pkgmodel.Package{
		mustPkg(t, "vendor/b", "1.0.0"),
		mustPkg(t, "vendor/a", "2.0.0"),
	}

	if err := Write(path, manifest, packages); err != nil {
		t.Fatalf("Write: %v", err)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(doc.Packages))
	}
	if doc.Packages[0].Name != "vendor/a" || doc.Packages[1].Name != "vendor/b" {
		t.Fatalf("expected packages sorted by name, got %+v", doc.Packages)
	}
	if err := doc.CheckFresh(manifest); err != nil {
		t.Fatalf("expected lockfile to be fresh: %v", err)
	}
}

func TestCheckFreshDetectsStaleManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pox.lock")

	if err := Write(path, map[string]interface{}{"name": "vendor/app"}, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	doc, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	err = doc.CheckFresh(map[string]interface{}{"name": "vendor/app-renamed"})
	if err == nil {
		t.Fatal("expected a stale-lockfile error")
	}
}
