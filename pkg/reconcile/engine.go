// Package reconcile implements the metadata reconciliation engine. It
// assembles fragments from the source adapters into one tree under
// caller-controlled priority, resolves the dataset's identity, acquires a
// persistent identifier and derives the computed fields.
package reconcile

import (
	"context"
	"fmt"

	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// Engine accumulates one dataset's metadata across a run. Merge order is the
// priority order: with overwrite off, earlier sources win on conflicting
// fields. The engine stages attribute-store writes and reports them through
// StoreDirty so the caller persists at most once, after the run succeeds.
type Engine struct {
	root       *metatree.Tree
	sink       *diag.Sink
	idgen      func() string
	storeDirty bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink routes the engine's warnings to sink.
func WithSink(sink *diag.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithIDGenerator replaces the identifier generator. Tests use this to make
// freshly generated identifiers deterministic.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.idgen = gen
	}
}

// New creates an engine with an empty tree.
func New(opts ...Option) *Engine {
	e := &Engine{
		root:  metatree.New(),
		sink:  diag.NewSink(),
		idgen: newIdentifier,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the live merged tree.
func (e *Engine) Root() *metatree.Tree { return e.root }

// Sink returns the engine's diagnostics sink.
func (e *Engine) Sink() *diag.Sink { return e.sink }

// Merge produces src's fragment and folds it into the tree under the
// source's category. With overwrite off existing values win; with overwrite
// on the fragment is authoritative. A nil fragment is a no-op.
func (e *Engine) Merge(ctx context.Context, src sources.Source, overwrite bool) error {
	frag, err := src.Produce(ctx, e.sink)
	if err != nil {
		return fmt.Errorf("source %s: %w", src.Category(), err)
	}
	e.MergeFragment(frag, overwrite)
	return nil
}

// MergeFragment folds an already-produced fragment into the tree.
func (e *Engine) MergeFragment(frag *metatree.Fragment, overwrite bool) {
	if frag == nil || frag.Tree == nil {
		return
	}

	category := e.root.Subtree(frag.Category)
	if category == nil {
		e.root.SetCategory(frag.Category, frag.Tree.Clone())
		return
	}
	metatree.Merge(category, frag.Tree, overwrite, func(path metatree.Path, message string) {
		e.sink.Coerce(frag.Category+"/"+path.String(), message, nil)
	})
}

// StoreDirty reports whether the engine staged attribute-store writes that
// still need persisting.
func (e *Engine) StoreDirty() bool { return e.storeDirty }

// setComputed stages one derived field under the Computed category.
func (e *Engine) setComputed(key string, value any) {
	computed := e.root.Subtree(sources.CategoryComputed)
	if computed == nil {
		computed = metatree.New()
		e.root.SetCategory(sources.CategoryComputed, computed)
	}
	computed.Set(key, value)
}

// Result is the outcome of one reconciliation run.
type Result struct {
	// Identifier is the dataset's resolved identity.
	Identifier string

	// DOI is the persistent identifier, empty when none was acquired.
	DOI string

	// Tree is the fully merged and derived metadata tree.
	Tree *metatree.Tree

	// Warnings are the non-fatal diagnostics recorded during the run.
	Warnings []diag.Warning
}

// Result snapshots the engine's current state.
func (e *Engine) Result() *Result {
	res := &Result{
		Tree:     e.root,
		Warnings: e.sink.Warnings(),
	}
	if v, ok := e.root.Lookup(metatree.Path{sources.CategoryComputed, "UUID"}); ok {
		res.Identifier, _ = metatree.String(v)
	}
	if v, ok := e.root.Lookup(metatree.Path{sources.CategoryComputed, "DOI"}); ok {
		res.DOI, _ = metatree.String(v)
	}
	return res
}
