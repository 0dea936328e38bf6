// Package installer applies a SolverResult to an on-disk vendor
// directory: walking the tree with godirwalk (the teacher's own
// fast-directory-scan choice) and removing any package directory the
// solve no longer references, guarded by a go-flock file lock so two
// installer runs against the same vendor directory never race.
// Nothing here is reachable from internal/solver; the resolver core
// decides WHAT to install, this package decides how the filesystem
// gets there.
package installer

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/solver"
)

// Pruner removes vendor directories that fell out of a solve.
type Pruner struct {
	VendorDir string
	LockPath  string
}

// NewPruner returns a Pruner rooted at vendorDir, using lockPath (a
// sibling file, conventionally vendorDir+".lock") to serialize
// concurrent installer invocations.
func NewPruner(vendorDir, lockPath string) *Pruner {
	return &Pruner{VendorDir: vendorDir, LockPath: lockPath}
}

// Prune removes every top-level "vendor/<vendor>/<project>" directory
// that isn't among result's installed packages, holding an exclusive
// file lock for the duration so a concurrent run can't observe a
// half-pruned tree.
func (p *Pruner) Prune(result *solver.SolverResult) error {
	lock := flock.NewFlock(p.LockPath)

	const retries = 10
	var locked bool
	var err error
	for i := 0; i < retries; i++ {
		locked, err = lock.TryLock()
		if err != nil {
			return errors.Wrapf(err, "failed to acquire vendor directory lock %q", p.LockPath)
		}
		if locked {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !locked {
		return errors.Errorf("vendor directory %q is locked by another process", p.VendorDir)
	}
	defer lock.Unlock()

	wanted := wantedDirs(result.Packages)

	// Walk only ever needs to look two levels deep ("vendor/<org>/<project>"):
	// each time it reaches that depth it decides keep-or-remove and returns
	// filepath.SkipDir so it never recurses into the package's own contents.
	var toRemove []string
	walkErr := godirwalk.Walk(p.VendorDir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == p.VendorDir || !de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(p.VendorDir, osPathname)
			if err != nil {
				return err
			}
			segments := strings.Split(rel, string(os.PathSeparator))
			if len(segments) != 2 {
				return nil
			}
			name := strings.ToLower(segments[0] + "/" + segments[1])
			if !wanted[name] {
				toRemove = append(toRemove, osPathname)
			}
			return filepath.SkipDir
		},
	})
	if walkErr != nil {
		if os.IsNotExist(errors.Cause(walkErr)) {
			return nil
		}
		return errors.Wrapf(walkErr, "failed to walk vendor directory %q", p.VendorDir)
	}

	for _, dir := range toRemove {
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrapf(err, "failed to prune stale package directory %q", dir)
		}
	}

	return nil
}

func wantedDirs(packages []*pkgmodel.Package) map[string]bool {
	wanted := make(map[string]bool, len(packages))
	for _, pkg := range packages {
		wanted[strings.ToLower(pkg.Name)] = true
	}
	return wanted
}
