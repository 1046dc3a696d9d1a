package client

import (
	"container/heap"
	"time"

	"github.com/trysourcetool/sourcetool/pkg/widget"
)

// Debouncer holds trailing per-widget timers. Pushing an id that is already
// pending replaces its value and moves its deadline, so only the last value
// of a burst of edits is released.
// It is not safe for concurrent use.
type Debouncer struct {
	entries debounceHeap
	byID    map[string]*debounceEntry
}

type debounceEntry struct {
	id       string
	value    widget.Content
	deadline time.Time
	index    int
}

// Due is an entry whose deadline has passed.
type Due struct {
	ID    string
	Value widget.Content
}

// NewDebouncer returns an empty debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{byID: make(map[string]*debounceEntry)}
}

// Push schedules value for id at deadline, superseding any pending value.
func (d *Debouncer) Push(id string, value widget.Content, deadline time.Time) {
	if e, ok := d.byID[id]; ok {
		e.value = value
		e.deadline = deadline
		heap.Fix(&d.entries, e.index)
		return
	}
	e := &debounceEntry{id: id, value: value, deadline: deadline}
	heap.Push(&d.entries, e)
	d.byID[id] = e
}

// Pending reports whether id has a value waiting.
func (d *Debouncer) Pending(id string) bool {
	_, ok := d.byID[id]
	return ok
}

// Remove drops the pending value of id.
func (d *Debouncer) Remove(id string) {
	e, ok := d.byID[id]
	if !ok {
		return
	}
	heap.Remove(&d.entries, e.index)
	delete(d.byID, id)
}

// Next returns the earliest deadline.
func (d *Debouncer) Next() (time.Time, bool) {
	if len(d.entries) == 0 {
		return time.Time{}, false
	}
	return d.entries[0].deadline, true
}

// PopDue removes and returns every entry due at now, earliest first.
func (d *Debouncer) PopDue(now time.Time) []Due {
	var out []Due
	for len(d.entries) > 0 && !d.entries[0].deadline.After(now) {
		e := heap.Pop(&d.entries).(*debounceEntry)
		delete(d.byID, e.id)
		out = append(out, Due{ID: e.id, Value: e.value})
	}
	return out
}

// Len returns the number of pending entries.
func (d *Debouncer) Len() int {
	return len(d.entries)
}

type debounceHeap []*debounceEntry

func (h debounceHeap) Len() int { return len(h) }

func (h debounceHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].id < h[j].id
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h debounceHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *debounceHeap) Push(x any) {
	e := x.(*debounceEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *debounceHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
