package lockfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/shyim/pox-sub000/internal/fs"
	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/resolveerr"
)

// packageRecord is one locked package entry on disk.
type packageRecord struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	PrettyVersion string `json:"pretty_version,omitempty"`
}

// Document is the on-disk lockfile shape: the solved package set plus
// the content hash it was produced against.
type Document struct {
	ContentHash string          `json:"content-hash"`
	Packages    []packageRecord `json:"packages"`
}

// Write atomically writes doc to path: it encodes to a sibling
// temporary file and renames it into place via fs.RenameWithFallback,
// the same two-step the reference toolchain uses so a crash mid-write
// never leaves a half-written lockfile behind.
func Write(path string, manifest map[string]interface{}, packages []*pkgmodel.Package) error {
	doc := Document{
		ContentHash: ContentHash(manifest),
		Packages:    make([]packageRecord, 0, len(packages)),
	}
	for _, pkg := range packages {
		doc.Packages = append(doc.Packages, packageRecord{
			Name:          pkg.Name,
			Version:       pkg.Version,
			PrettyVersion: pkg.PrettyVersion,
		})
	}
	sort.Slice(doc.Packages, func(i, j int) bool { return doc.Packages[i].Name < doc.Packages[j].Name })

	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode lockfile")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write temporary lockfile %q", tmp)
	}
	if err := fs.RenameWithFallback(tmp, path); err != nil {
		return errors.Wrapf(err, "failed to install lockfile %q", path)
	}
	return nil
}

// Read loads and decodes the lockfile at path.
func Read(path string) (*Document, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read lockfile %q", path)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to decode lockfile %q", path)
	}
	return &doc, nil
}

// CheckFresh returns resolveerr.ErrStaleLockfile if doc's content hash
// no longer matches manifest.
func (doc *Document) CheckFresh(manifest map[string]interface{}) error {
	want := ContentHash(manifest)
	if doc.ContentHash != want {
		return errors.Wrapf(resolveerr.ErrStaleLockfile, "lockfile hash %s, manifest hash %s", doc.ContentHash, want)
	}
	return nil
}
