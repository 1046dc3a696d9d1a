package reconcile

import (
	"errors"
	"fmt"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

var (
	// ErrDuplicatePath is returned when two widgets claim the same path in one pass.
	ErrDuplicatePath = errors.New("duplicate widget path")

	// ErrUnknownWidget is returned when a commit targets an id that is not in the tree.
	ErrUnknownWidget = errors.New("unknown widget")
)

// Tree is the ordered set of widgets produced by one pass.
// A nil *Tree is a valid empty tree.
type Tree struct {
	widgets []*widget.Widget
	byPath  map[string]*widget.Widget
	byID    map[string]*widget.Widget
}

// NewTree indexes widgets in the given order.
func NewTree(widgets ...*widget.Widget) (*Tree, error) {
	t := newTree(len(widgets))
	for _, w := range widgets {
		if err := t.add(w); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func newTree(capacity int) *Tree {
	return &Tree{
		widgets: make([]*widget.Widget, 0, capacity),
		byPath:  make(map[string]*widget.Widget, capacity),
		byID:    make(map[string]*widget.Widget, capacity),
	}
}

func (t *Tree) add(w *widget.Widget) error {
	if w == nil {
		return errors.New("nil widget")
	}
	key := w.Path.String()
	if _, exists := t.byPath[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, key)
	}
	if _, exists := t.byID[w.ID]; exists {
		return fmt.Errorf("duplicate widget id %s", w.ID)
	}
	t.widgets = append(t.widgets, w)
	t.byPath[key] = w
	t.byID[w.ID] = w
	return nil
}

// Len returns the number of widgets.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.widgets)
}

// Lookup returns the widget at path.
func (t *Tree) Lookup(path widget.Path) (*widget.Widget, bool) {
	if t == nil {
		return nil, false
	}
	w, ok := t.byPath[path.String()]
	return w, ok
}

// ByID returns the widget with the given id.
func (t *Tree) ByID(id string) (*widget.Widget, bool) {
	if t == nil {
		return nil, false
	}
	w, ok := t.byID[id]
	return w, ok
}

// Widgets returns the widgets in declaration order. The slice is a copy; the widgets are not.
func (t *Tree) Widgets() []*widget.Widget {
	if t == nil {
		return nil
	}
	out := make([]*widget.Widget, len(t.widgets))
	copy(out, t.widgets)
	return out
}

// Descendants returns every widget strictly below path, in declaration order.
func (t *Tree) Descendants(path widget.Path) []*widget.Widget {
	if t == nil {
		return nil
	}
	var out []*widget.Widget
	for _, w := range t.widgets {
		if path.IsAncestorOf(w.Path) {
			out = append(out, w)
		}
	}
	return out
}

// FormOf returns the nearest form enclosing path.
func (t *Tree) FormOf(path widget.Path) (*widget.Widget, bool) {
	for p := path.Parent(); len(p) > 0; p = p.Parent() {
		if w, ok := t.Lookup(p); ok && w.Kind() == widget.KindForm {
			return w, true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := newTree(len(t.widgets))
	for _, w := range t.widgets {
		cp := w.Clone()
		out.widgets = append(out.widgets, cp)
		out.byPath[cp.Path.String()] = cp
		out.byID[cp.ID] = cp
	}
	return out
}
