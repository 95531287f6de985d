// Package syncer recomputes content digests and merges them into
// per-package checksum manifests.
package syncer

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/vendorsum/vendorsum/pkg/digest"
	"github.com/vendorsum/vendorsum/pkg/manifest"
	"github.com/vendorsum/vendorsum/pkg/vendorpath"
)

// Syncer updates the checksum manifests under one vendor root.
// A Syncer is good for one run: manifests load lazily on first
// touch and are written back once per run.
type Syncer struct {
	VendorRoot string

	// IgnoreMissing turns a missing file into a manifest entry
	// removal instead of an error.
	IgnoreMissing bool

	// Workers sizes the hashing pool. Zero means NumCPU.
	Workers int

	manifests map[string]*manifest.Manifest
}

func New(vendorRoot string) *Syncer {
	return &Syncer{
		VendorRoot: vendorRoot,
		manifests:  map[string]*manifest.Manifest{},
	}
}

type hashJob struct {
	pkg string // manifest the result merges into
	rel string // key within that manifest
	abs string // file to hash
}

type hashResult struct {
	pkg    string
	rel    string
	digest string
	remove bool
	err    error
}

// UpdateFiles recomputes digests for explicit vendor-relative
// paths. Hashing fans out to the worker pool; merging and
// persistence happen here, one write per touched manifest, and
// only after every hash succeeded.
func (s *Syncer) UpdateFiles(relPaths []string) error {
	jobs := make([]hashJob, 0, len(relPaths))
	for _, p := range relPaths {
		pkg, rest, err := vendorpath.Split(p)
		if err != nil {
			return err
		}
		jobs = append(jobs, hashJob{
			pkg: pkg,
			rel: rest,
			abs: filepath.Join(
				s.VendorRoot, pkg, filepath.FromSlash(rest),
			),
		})
	}

	results, err := s.runJobs(jobs)
	if err != nil {
		return err
	}

	touched := map[string]bool{}
	for _, r := range results {
		m, err := s.manifestFor(r.pkg)
		if err != nil {
			return err
		}
		s.merge(m, r)
		touched[r.pkg] = true
	}

	return s.persist(touched)
}

// UpdatePackages re-hashes every path already listed in each
// package's manifest. Packages are processed one at a time and
// persisted as soon as their merge completes, so packages
// finished before a failure stay updated.
func (s *Syncer) UpdatePackages(pkgs []string) error {
	for _, pkg := range pkgs {
		if err := s.updatePackage(pkg); err != nil {
			return err
		}
	}
	return nil
}

// UpdateAll runs UpdatePackages over every entry of the vendor
// root.
func (s *Syncer) UpdateAll() error {
	pkgs, err := vendorpath.ListPackages(s.VendorRoot)
	if err != nil {
		return err
	}
	sort.Strings(pkgs)
	return s.UpdatePackages(pkgs)
}

func (s *Syncer) updatePackage(pkg string) error {
	m, err := s.manifestFor(pkg)
	if err != nil {
		return err
	}

	dir := filepath.Join(s.VendorRoot, pkg)
	jobs := make([]hashJob, 0, len(m.Files))
	for rel := range m.Files {
		jobs = append(jobs, hashJob{
			pkg: pkg,
			rel: rel,
			abs: filepath.Join(dir, filepath.FromSlash(rel)),
		})
	}

	results, err := s.runJobs(jobs)
	if err != nil {
		return err
	}
	for _, r := range results {
		s.merge(m, r)
	}

	slog.Debug("persisting manifest",
		"package", pkg,
		"entries", len(m.Files),
	)
	return m.Persist()
}

// runJobs fans jobs out to the pool and collects every result
// before reporting the first error, so no manifest is persisted
// for a run that saw a failure.
func (s *Syncer) runJobs(jobs []hashJob) ([]hashResult, error) {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers == 0 {
		return nil, nil
	}

	jobCh := make(chan hashJob, len(jobs))
	resultCh := make(chan hashResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.hashWorker(jobCh, resultCh)
		}()
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	wg.Wait()
	close(resultCh)

	results := make([]hashResult, 0, len(jobs))
	for r := range resultCh {
		if r.err != nil {
			return nil, r.err
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Syncer) hashWorker(
	jobs <-chan hashJob,
	results chan<- hashResult,
) {
	buf := make([]byte, 1<<20)
	for j := range jobs {
		results <- s.hashOne(j, buf)
	}
}

func (s *Syncer) hashOne(j hashJob, buf []byte) hashResult {
	if s.IgnoreMissing {
		if _, err := os.Stat(j.abs); errors.Is(
			err, fs.ErrNotExist,
		) {
			return hashResult{
				pkg: j.pkg, rel: j.rel, remove: true,
			}
		}
	}
	d, err := digest.FileBuffer(j.abs, buf)
	return hashResult{
		pkg: j.pkg, rel: j.rel, digest: d, err: err,
	}
}

func (s *Syncer) merge(m *manifest.Manifest, r hashResult) {
	if r.remove {
		m.Remove(r.rel)
		return
	}
	m.Upsert(r.rel, r.digest)
}

func (s *Syncer) manifestFor(
	pkg string,
) (*manifest.Manifest, error) {
	if m, ok := s.manifests[pkg]; ok {
		return m, nil
	}
	m, err := manifest.Load(
		vendorpath.ManifestPath(s.VendorRoot, pkg),
	)
	if err != nil {
		return nil, err
	}
	s.manifests[pkg] = m
	return m, nil
}

func (s *Syncer) persist(touched map[string]bool) error {
	pkgs := make([]string, 0, len(touched))
	for pkg := range touched {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	for _, pkg := range pkgs {
		m := s.manifests[pkg]
		slog.Debug("persisting manifest",
			"package", pkg,
			"entries", len(m.Files),
		)
		if err := m.Persist(); err != nil {
			return err
		}
	}
	return nil
}
