package reconcile

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Result describes how a pass was mapped onto the previous tree.
type Result struct {
	Tree *Tree

	// Preserved widgets kept the id of the previous widget at their path.
	Preserved []*widget.Widget
	// Created widgets were minted a fresh id.
	Created []*widget.Widget
	// Removed holds widgets of the previous tree whose path is gone or whose kind changed.
	Removed []*widget.Widget
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithIDGenerator replaces the default uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.newID = fn
		}
	}
}

type placeConfig struct {
	reset bool
}

// PlaceOption alters a single placement.
type PlaceOption func(*placeConfig)

// Reset keeps the identity of a preserved widget but discards its committed value.
func Reset() PlaceOption {
	return func(c *placeConfig) {
		c.reset = true
	}
}

// Reconciler builds the next tree one widget at a time while a script runs.
// It is not safe for concurrent use; a session runs one pass at a time.
type Reconciler struct {
	prev  *Tree
	next  *Tree
	newID func() string

	preserved []*widget.Widget
	created   []*widget.Widget
}

// NewReconciler starts a pass on top of prev, which may be nil for a first render.
func NewReconciler(prev *Tree, opts ...Option) *Reconciler {
	r := &Reconciler{
		prev:  prev,
		next:  newTree(prev.Len()),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Place declares content at path and returns the placed widget with its
// reconciled id and value. content is owned by the tree afterwards.
func (r *Reconciler) Place(path widget.Path, content widget.Content, opts ...PlaceOption) (*widget.Widget, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("%w: nil content at %s", widget.ErrUnknownKind, path)
	}
	if _, exists := r.next.Lookup(path); exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}

	var cfg placeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &widget.Widget{Path: path.Clone(), Content: content}
	if prev, ok := r.prev.Lookup(path); ok && prev.Kind() == content.Kind() {
		w.ID = prev.ID
		if cfg.reset {
			widget.ResetValue(content)
		} else {
			widget.CarryValue(content, prev.Content)
		}
		r.preserved = append(r.preserved, w)
	} else {
		w.ID = r.newID()
		widget.ResetValue(content)
		r.created = append(r.created, w)
	}

	if err := r.next.add(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Previous returns the tree the pass is reconciled against.
func (r *Reconciler) Previous() *Tree {
	return r.prev
}

// Result finishes the pass.
func (r *Reconciler) Result() Result {
	res := Result{
		Tree:      r.next,
		Preserved: r.preserved,
		Created:   r.created,
	}
	for _, old := range r.prev.Widgets() {
		if w, ok := r.next.Lookup(old.Path); !ok || w.ID != old.ID {
			res.Removed = append(res.Removed, old)
		}
	}
	return res
}

// Decl is one widget declaration of a pass.
type Decl struct {
	Path    widget.Path
	Content widget.Content
}

// Reconcile maps a complete list of declarations onto prev.
func Reconcile(prev *Tree, decls []Decl, opts ...Option) (Result, error) {
	r := NewReconciler(prev, opts...)
	for _, d := range decls {
		if _, err := r.Place(d.Path, d.Content); err != nil {
			return Result{}, err
		}
	}
	return r.Result(), nil
}

// ApplyCommits copies committed client values into tree by id.
// States for unknown ids or with a different kind are skipped and reported.
func ApplyCommits(tree *Tree, states []*widget.Widget) []error {
	var errs []error
	for _, s := range states {
		if s == nil || s.Content == nil {
			continue
		}
		w, ok := tree.ByID(s.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownWidget, s.ID))
			continue
		}
		if !w.Kind().HasValue() {
			continue
		}
		if err := widget.CopyValue(w.Content, s.Content); err != nil {
			errs = append(errs, fmt.Errorf("widget %s: %w", s.ID, err))
		}
	}
	return errs
}
