package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Widget is one node of a rendered tree.
// ID is stable across reruns for as long as the same Kind occupies the same Path.
type Widget struct {
	ID      string
	Path    Path
	Content Content
}

// New returns a widget with the given identity, position and payload.
func New(id string, path Path, content Content) *Widget {
	return &Widget{ID: id, Path: path, Content: content}
}

// Kind returns the variant of the widget, or "" if it has no content.
func (w *Widget) Kind() Kind {
	if w == nil || w.Content == nil {
		return ""
	}
	return w.Content.Kind()
}

// Clone returns a deep copy.
func (w *Widget) Clone() *Widget {
	if w == nil {
		return nil
	}
	return &Widget{ID: w.ID, Path: w.Path.Clone(), Content: Clone(w.Content)}
}

// Validate checks the structural invariants of a single widget.
func (w *Widget) Validate() error {
	if w.ID == "" {
		return errors.New("widget id is required")
	}
	if w.Content == nil {
		return fmt.Errorf("widget %s: %w: missing content", w.ID, ErrUnknownKind)
	}
	if err := w.Path.Validate(); err != nil {
		return fmt.Errorf("widget %s: %w", w.ID, err)
	}
	return nil
}

// MarshalJSON encodes the widget as {"id", "path", "<kind>": {...}}.
func (w Widget) MarshalJSON() ([]byte, error) {
	if w.Content == nil {
		return nil, fmt.Errorf("widget %s: %w: missing content", w.ID, ErrUnknownKind)
	}
	payload, err := json.Marshal(w.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", w.Content.Kind(), err)
	}
	path := w.Path
	if path == nil {
		path = Path{}
	}
	return json.Marshal(map[string]any{
		"id":                     w.ID,
		"path":                   []int(path),
		string(w.Content.Kind()): json.RawMessage(payload),
	})
}

// UnmarshalJSON decodes the oneof shape produced by MarshalJSON.
func (w *Widget) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Widget
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &out.ID); err != nil {
			return fmt.Errorf("widget id: %w", err)
		}
		delete(fields, "id")
	}
	if raw, ok := fields["path"]; ok {
		if err := json.Unmarshal(raw, &out.Path); err != nil {
			return fmt.Errorf("widget path: %w", err)
		}
		delete(fields, "path")
	}

	if len(fields) != 1 {
		return fmt.Errorf("%w: expected exactly one variant key, got %d", ErrUnknownKind, len(fields))
	}
	for key, raw := range fields {
		content := NewContent(Kind(key))
		if content == nil {
			return fmt.Errorf("%w: %q", ErrUnknownKind, key)
		}
		if err := json.Unmarshal(raw, content); err != nil {
			return fmt.Errorf("widget %s: %w", key, err)
		}
		out.Content = content
	}

	*w = out
	return nil
}

// Clone returns a deep copy of c.
func Clone(c Content) Content {
	if c == nil {
		return nil
	}
	cl := &cloner{}
	c.Accept(cl)
	return cl.out
}

type cloner struct {
	out Content
}

func (c *cloner) VisitTextInput(w *TextInput)         { cp := *w; c.out = &cp }
func (c *cloner) VisitTextArea(w *TextArea)           { cp := *w; c.out = &cp }
func (c *cloner) VisitNumberInput(w *NumberInput)     { cp := *w; c.out = &cp }
func (c *cloner) VisitDateInput(w *DateInput)         { cp := *w; c.out = &cp }
func (c *cloner) VisitDateTimeInput(w *DateTimeInput) { cp := *w; c.out = &cp }
func (c *cloner) VisitTimeInput(w *TimeInput)         { cp := *w; c.out = &cp }
func (c *cloner) VisitCheckbox(w *Checkbox)           { cp := *w; c.out = &cp }
func (c *cloner) VisitButton(w *Button)               { cp := *w; c.out = &cp }
func (c *cloner) VisitMarkdown(w *Markdown)           { cp := *w; c.out = &cp }
func (c *cloner) VisitColumns(w *Columns)             { cp := *w; c.out = &cp }
func (c *cloner) VisitColumnItem(w *ColumnItem)       { cp := *w; c.out = &cp }
func (c *cloner) VisitForm(w *Form)                   { cp := *w; c.out = &cp }

func (c *cloner) VisitSelectbox(w *Selectbox) {
	cp := *w
	cp.Options = slices.Clone(w.Options)
	c.out = &cp
}

func (c *cloner) VisitRadio(w *Radio) {
	cp := *w
	cp.Options = slices.Clone(w.Options)
	c.out = &cp
}

func (c *cloner) VisitMultiSelect(w *MultiSelect) {
	cp := *w
	cp.Value = slices.Clone(w.Value)
	cp.Options = slices.Clone(w.Options)
	cp.DefaultValue = slices.Clone(w.DefaultValue)
	c.out = &cp
}

func (c *cloner) VisitCheckboxGroup(w *CheckboxGroup) {
	cp := *w
	cp.Value = slices.Clone(w.Value)
	cp.Options = slices.Clone(w.Options)
	cp.DefaultValue = slices.Clone(w.DefaultValue)
	c.out = &cp
}

func (c *cloner) VisitTable(w *Table) {
	cp := *w
	cp.Data = slices.Clone(w.Data)
	cp.ColumnOrder = slices.Clone(w.ColumnOrder)
	cp.Value = w.Value.Clone()
	c.out = &cp
}

// Clone returns a deep copy of the table value.
func (v TableValue) Clone() TableValue {
	if v.Selection == nil {
		return TableValue{}
	}
	sel := *v.Selection
	sel.Rows = slices.Clone(v.Selection.Rows)
	return TableValue{Selection: &sel}
}
