// Package vendorpath resolves vendor-relative file paths to the
// packages and manifests they belong to.
package vendorpath

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ManifestName is the fixed per-package manifest filename.
const ManifestName = ".cargo-checksum.json"

// ErrInvalidPath marks vendor-relative paths that cannot name a
// file inside a package.
var ErrInvalidPath = errors.New("invalid vendor-relative path")

// Split breaks a vendor-relative path into the package name (its
// first segment) and the path within that package. A bare package
// name is not a valid file target.
func Split(p string) (string, string, error) {
	cleaned := path.Clean(filepath.ToSlash(p))
	if cleaned == "" || cleaned == "." || path.IsAbs(cleaned) {
		return "", "", fmt.Errorf(
			"%w: %q", ErrInvalidPath, p,
		)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", "", fmt.Errorf(
			"%w: %q escapes the vendor root", ErrInvalidPath, p,
		)
	}

	pkg, rest, ok := strings.Cut(cleaned, "/")
	if !ok {
		return "", "", fmt.Errorf(
			"%w: %q needs at least 2 segments", ErrInvalidPath, p,
		)
	}
	return pkg, rest, nil
}

// ManifestPath returns the absolute location of a package's
// checksum manifest.
func ManifestPath(vendorRoot, pkg string) string {
	return filepath.Join(vendorRoot, pkg, ManifestName)
}

// ListPackages returns the names of every immediate child of the
// vendor root.
func ListPackages(vendorRoot string) ([]string, error) {
	entries, err := os.ReadDir(vendorRoot)
	if err != nil {
		return nil, fmt.Errorf(
			"list vendor directory %s: %w", vendorRoot, err,
		)
	}

	pkgs := make([]string, 0, len(entries))
	for _, e := range entries {
		pkgs = append(pkgs, e.Name())
	}
	return pkgs, nil
}
