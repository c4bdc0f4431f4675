// Package attrstore implements the dataset attribute store on a YAML file
// stored alongside the dataset. The store is a read-modify-write bag:
// callers stage changes with Set and flush them with Persist.
package attrstore

import (
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/ausgeophys/metasync/pkg/constants"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// Store is a file-backed attribute store. It satisfies the
// sources.AttributeStore contract.
type Store struct {
	mu    sync.Mutex
	path  string
	tree  *metatree.Tree
	dirty bool
}

// Open loads the attribute file at path. A missing file opens as an empty
// store; the file is created on first Persist.
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Store{path: path, tree: metatree.New()}, nil
	}
	if err != nil {
		return nil, mserrors.WrapIO("read", path, err)
	}

	tree, err := metatree.FromYAML(data)
	if err != nil {
		return nil, mserrors.WrapParse("yaml", path, err)
	}
	return &Store{path: path, tree: tree}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get returns an attribute value and whether it is present.
func (s *Store) Get(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Get(name)
}

// Set stages an attribute value.
func (s *Store) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Set(name, value)
	s.dirty = true
}

// Names returns the attribute names in file order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Keys()
}

// Dirty reports whether unstored changes are staged.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Persist writes the attribute bag back to its file. A clean store is a
// no-op.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	data, err := yaml.Marshal(s.tree)
	if err != nil {
		return mserrors.WrapIO("marshal", s.path, err)
	}
	if err := os.WriteFile(s.path, data, constants.FilePermissions); err != nil {
		return mserrors.WrapIO("write", s.path, err)
	}
	s.dirty = false
	return nil
}
