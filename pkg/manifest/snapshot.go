package manifest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"golang.org/x/sync/errgroup"

	"github.com/ausgeophys/metasync/pkg/constants"
	"github.com/ausgeophys/metasync/pkg/errors"
)

// SidecarName is the file the integrity snapshot is persisted to, directly
// under the dataset folder.
const SidecarName = ".metasync.yaml"

// DefaultExcludedExtensions are skipped during capture and verification:
// backup, checksum, identity, metadata and temp files.
var DefaultExcludedExtensions = []string{".bck", ".md5", ".uuid", ".json", ".yaml", ".tmp"}

// Entry records one file's name, content digest and modification time.
type Entry struct {
	File       string    `yaml:"file"`
	Digest     string    `yaml:"digest"`
	ModifiedAt time.Time `yaml:"modified_at"`
}

// Snapshot is a dataset's integrity snapshot: identity, capture time,
// location and one entry per file, sorted by file name. File names are
// unique within a snapshot. A snapshot is overwritten wholesale on each
// successful re-finalization and never mutated by verification.
type Snapshot struct {
	Identifier string    `yaml:"identifier"`
	CapturedAt time.Time `yaml:"captured_at"`
	BasePath   string    `yaml:"base_path"`
	Files      []Entry   `yaml:"files"`
}

// Options configure capture and verification.
type Options struct {
	exclusions  []string
	concurrency int
	digester    *Digester
}

// Option configures capture or verification.
type Option func(*Options)

// WithExclusions replaces the default excluded extensions.
func WithExclusions(exts []string) Option {
	return func(o *Options) {
		if exts != nil {
			o.exclusions = exts
		}
	}
}

// WithConcurrency bounds the number of files digested in parallel.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithDigester substitutes the digest provider.
func WithDigester(d *Digester) Option {
	return func(o *Options) {
		if d != nil {
			o.digester = d
		}
	}
}

func newOptions(opts []Option) *Options {
	o := &Options{
		exclusions:  DefaultExcludedExtensions,
		concurrency: constants.MaxConcurrentDigests,
		digester:    NewDigester(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Capture lists the files directly under basePath (excluding files whose
// extension is excluded, subdirectories, and the sidecar itself), digests
// each file's content, and returns a snapshot sorted by file name. Files
// are digested in parallel up to the configured concurrency; the entry
// order is deterministic regardless of completion order.
func Capture(ctx context.Context, basePath, identifier string, opts ...Option) (*Snapshot, error) {
	o := newOptions(opts)

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.WrapIO("resolve", basePath, err)
	}
	names, err := listFiles(absPath, o.exclusions)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(absPath, name)
			digest, err := o.digester.DigestFile(path)
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return errors.WrapIO("stat", path, err)
			}
			entries[i] = Entry{
				File:       name,
				Digest:     digest,
				ModifiedAt: info.ModTime().UTC(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{
		Identifier: identifier,
		CapturedAt: time.Now().UTC(),
		BasePath:   absPath,
		Files:      entries,
	}, nil
}

// listFiles returns the sorted names of regular files directly under dir,
// excluding subdirectories, excluded extensions and the sidecar record.
func listFiles(dir string, exclusions []string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapIO("list", dir, err)
	}

	excluded := make(map[string]struct{}, len(exclusions))
	for _, ext := range exclusions {
		excluded[strings.ToLower(ext)] = struct{}{}
	}

	var names []string
	for _, entry := range dirEntries {
		if entry.IsDir() || entry.Name() == SidecarName {
			continue
		}
		if _, skip := excluded[strings.ToLower(filepath.Ext(entry.Name()))]; skip {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Store persists snapshots to and loads them from the sidecar record in a
// dataset folder.
type Store struct{}

// NewStore creates a snapshot store.
func NewStore() *Store {
	return &Store{}
}

// Save writes the snapshot wholesale to the sidecar record under its
// base path.
func (s *Store) Save(snapshot *Snapshot) error {
	if snapshot == nil || snapshot.BasePath == "" {
		return errors.NewValidationError("base_path", "", "snapshot base path required")
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return errors.WrapResource("encode", "snapshot", snapshot.Identifier, err)
	}

	path := filepath.Join(snapshot.BasePath, SidecarName)
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads the snapshot from the sidecar record under basePath. A
// missing sidecar yields ErrNotFound.
func (s *Store) Load(basePath string) (*Snapshot, error) {
	path := filepath.Join(basePath, SidecarName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("snapshot", path)
		}
		return nil, errors.WrapIO("read", path, err)
	}

	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &snapshot, nil
}
