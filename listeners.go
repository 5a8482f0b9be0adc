package observable

import "slices"

const (
	kindInvalidation    = "invalidation"
	kindSubInvalidation = "sub-invalidation"
	kindChange          = "change"
)

type invalidationEntry struct {
	id ListenerID
	fn InvalidationListener
}

type subInvalidationEntry struct {
	id ListenerID
	fn SubInvalidationListener
}

type changeEntry[C comparable] struct {
	id ListenerID
	fn func(C)
}

// listenerHelper holds the listeners of one collection. A nil helper means no
// listeners; a single listener lives in a dedicated one-slot helper and any
// more move into genericHelper. Every add and remove returns the helper to
// keep, which may be a different representation.
type listenerHelper[C comparable] interface {
	addInvalidation(entry invalidationEntry) listenerHelper[C]
	removeInvalidation(id ListenerID) (listenerHelper[C], bool)
	addSubInvalidation(entry subInvalidationEntry) listenerHelper[C]
	removeSubInvalidation(id ListenerID) (listenerHelper[C], bool)
	addChange(entry changeEntry[C]) listenerHelper[C]
	removeChange(id ListenerID) (listenerHelper[C], bool)
	fire(change C, final bool)
}

func addInvalidationListener[C comparable](h listenerHelper[C], source Observable, entry invalidationEntry) listenerHelper[C] {
	if h == nil {
		return &singleInvalidation[C]{source: source, entry: entry}
	}
	return h.addInvalidation(entry)
}

func removeInvalidationListener[C comparable](h listenerHelper[C], id ListenerID) (listenerHelper[C], bool) {
	if h == nil {
		return nil, false
	}
	return h.removeInvalidation(id)
}

func addSubInvalidationListener[C comparable](h listenerHelper[C], source Observable, entry subInvalidationEntry) listenerHelper[C] {
	if h == nil {
		return &singleSubInvalidation[C]{source: source, entry: entry}
	}
	return h.addSubInvalidation(entry)
}

func removeSubInvalidationListener[C comparable](h listenerHelper[C], id ListenerID) (listenerHelper[C], bool) {
	if h == nil {
		return nil, false
	}
	return h.removeSubInvalidation(id)
}

func addChangeListener[C comparable](h listenerHelper[C], source Observable, entry changeEntry[C]) listenerHelper[C] {
	if h == nil {
		return &singleChange[C]{source: source, entry: entry}
	}
	return h.addChange(entry)
}

func removeChangeListener[C comparable](h listenerHelper[C], id ListenerID) (listenerHelper[C], bool) {
	if h == nil {
		return nil, false
	}
	return h.removeChange(id)
}

// fireChange notifies every listener of h. A zero change is a pure
// sub-invalidation and only reaches sub-invalidation listeners.
func fireChange[C comparable](h listenerHelper[C], change C, final bool) {
	if h != nil {
		h.fire(change, final)
	}
}

func resetChange[C comparable](change C) {
	if r, ok := any(change).(interface{ Reset() }); ok {
		r.Reset()
	}
}

func callInvalidation(source Observable, entry invalidationEntry) {
	invokeListener(kindInvalidation, entry.id, func() { entry.fn(source) })
}

func callSubInvalidation(source Observable, entry subInvalidationEntry, subOnly bool) {
	invokeListener(kindSubInvalidation, entry.id, func() { entry.fn(source, subOnly) })
}

func callChange[C comparable](entry changeEntry[C], change C) {
	resetChange(change)
	invokeListener(kindChange, entry.id, func() { entry.fn(change) })
}

type singleInvalidation[C comparable] struct {
	source Observable
	entry  invalidationEntry
}

func (h *singleInvalidation[C]) addInvalidation(entry invalidationEntry) listenerHelper[C] {
	return &genericHelper[C]{source: h.source, invalidations: []invalidationEntry{h.entry, entry}}
}

func (h *singleInvalidation[C]) removeInvalidation(id ListenerID) (listenerHelper[C], bool) {
	if h.entry.id == id {
		return nil, true
	}
	return h, false
}

func (h *singleInvalidation[C]) addSubInvalidation(entry subInvalidationEntry) listenerHelper[C] {
	return &genericHelper[C]{
		source:           h.source,
		invalidations:    []invalidationEntry{h.entry},
		subInvalidations: []subInvalidationEntry{entry},
	}
}

func (h *singleInvalidation[C]) removeSubInvalidation(ListenerID) (listenerHelper[C], bool) {
	return h, false
}

func (h *singleInvalidation[C]) addChange(entry changeEntry[C]) listenerHelper[C] {
	return &genericHelper[C]{
		source:        h.source,
		invalidations: []invalidationEntry{h.entry},
		changes:       []changeEntry[C]{entry},
	}
}

func (h *singleInvalidation[C]) removeChange(ListenerID) (listenerHelper[C], bool) {
	return h, false
}

func (h *singleInvalidation[C]) fire(change C, _ bool) {
	var zero C
	if change != zero {
		callInvalidation(h.source, h.entry)
	}
}

type singleSubInvalidation[C comparable] struct {
	source Observable
	entry  subInvalidationEntry
}

func (h *singleSubInvalidation[C]) addInvalidation(entry invalidationEntry) listenerHelper[C] {
	return &genericHelper[C]{
		source:           h.source,
		invalidations:    []invalidationEntry{entry},
		subInvalidations: []subInvalidationEntry{h.entry},
	}
}

func (h *singleSubInvalidation[C]) removeInvalidation(ListenerID) (listenerHelper[C], bool) {
	return h, false
}

func (h *singleSubInvalidation[C]) addSubInvalidation(entry subInvalidationEntry) listenerHelper[C] {
	return &genericHelper[C]{source: h.source, subInvalidations: []subInvalidationEntry{h.entry, entry}}
}

func (h *singleSubInvalidation[C]) removeSubInvalidation(id ListenerID) (listenerHelper[C], bool) {
	if h.entry.id == id {
		return nil, true
	}
	return h, false
}

func (h *singleSubInvalidation[C]) addChange(entry changeEntry[C]) listenerHelper[C] {
	return &genericHelper[C]{
		source:           h.source,
		subInvalidations: []subInvalidationEntry{h.entry},
		changes:          []changeEntry[C]{entry},
	}
}

func (h *singleSubInvalidation[C]) removeChange(ListenerID) (listenerHelper[C], bool) {
	return h, false
}

func (h *singleSubInvalidation[C]) fire(change C, final bool) {
	var zero C
	if change == zero || final {
		callSubInvalidation(h.source, h.entry, change == zero)
	}
}

type singleChange[C comparable] struct {
	source Observable
	entry  changeEntry[C]
}

func (h *singleChange[C]) addInvalidation(entry invalidationEntry) listenerHelper[C] {
	return &genericHelper[C]{
		source:        h.source,
		invalidations: []invalidationEntry{entry},
		changes:       []changeEntry[C]{h.entry},
	}
}

func (h *singleChange[C]) removeInvalidation(ListenerID) (listenerHelper[C], bool) {
	return h, false
}

func (h *singleChange[C]) addSubInvalidation(entry subInvalidationEntry) listenerHelper[C] {
	return &genericHelper[C]{
		source:           h.source,
		subInvalidations: []subInvalidationEntry{entry},
		changes:          []changeEntry[C]{h.entry},
	}
}

func (h *singleChange[C]) removeSubInvalidation(ListenerID) (listenerHelper[C], bool) {
	return h, false
}

func (h *singleChange[C]) addChange(entry changeEntry[C]) listenerHelper[C] {
	return &genericHelper[C]{source: h.source, changes: []changeEntry[C]{h.entry, entry}}
}

func (h *singleChange[C]) removeChange(id ListenerID) (listenerHelper[C], bool) {
	if h.entry.id == id {
		return nil, true
	}
	return h, false
}

func (h *singleChange[C]) fire(change C, _ bool) {
	var zero C
	if change != zero {
		callChange(h.entry, change)
	}
}

// genericHelper holds two or more listeners. While a dispatch is running,
// updates copy the affected slice so the dispatch keeps iterating the
// listeners it started with.
type genericHelper[C comparable] struct {
	source           Observable
	invalidations    []invalidationEntry
	subInvalidations []subInvalidationEntry
	changes          []changeEntry[C]
	dispatching      bool
}

func (h *genericHelper[C]) addInvalidation(entry invalidationEntry) listenerHelper[C] {
	h.invalidations = appendEntry(h.invalidations, entry, h.dispatching)
	return h
}

func (h *genericHelper[C]) removeInvalidation(id ListenerID) (listenerHelper[C], bool) {
	i := slices.IndexFunc(h.invalidations, func(e invalidationEntry) bool { return e.id == id })
	if i < 0 {
		return h, false
	}
	h.invalidations = deleteEntry(h.invalidations, i, h.dispatching)
	return h.shrink(), true
}

func (h *genericHelper[C]) addSubInvalidation(entry subInvalidationEntry) listenerHelper[C] {
	h.subInvalidations = appendEntry(h.subInvalidations, entry, h.dispatching)
	return h
}

func (h *genericHelper[C]) removeSubInvalidation(id ListenerID) (listenerHelper[C], bool) {
	i := slices.IndexFunc(h.subInvalidations, func(e subInvalidationEntry) bool { return e.id == id })
	if i < 0 {
		return h, false
	}
	h.subInvalidations = deleteEntry(h.subInvalidations, i, h.dispatching)
	return h.shrink(), true
}

func (h *genericHelper[C]) addChange(entry changeEntry[C]) listenerHelper[C] {
	h.changes = appendEntry(h.changes, entry, h.dispatching)
	return h
}

func (h *genericHelper[C]) removeChange(id ListenerID) (listenerHelper[C], bool) {
	i := slices.IndexFunc(h.changes, func(e changeEntry[C]) bool { return e.id == id })
	if i < 0 {
		return h, false
	}
	h.changes = deleteEntry(h.changes, i, h.dispatching)
	return h.shrink(), true
}

// shrink returns the single-slot form once exactly one listener remains.
func (h *genericHelper[C]) shrink() listenerHelper[C] {
	total := len(h.invalidations) + len(h.subInvalidations) + len(h.changes)
	if total != 1 {
		return h
	}
	switch {
	case len(h.invalidations) == 1:
		return &singleInvalidation[C]{source: h.source, entry: h.invalidations[0]}
	case len(h.subInvalidations) == 1:
		return &singleSubInvalidation[C]{source: h.source, entry: h.subInvalidations[0]}
	default:
		return &singleChange[C]{source: h.source, entry: h.changes[0]}
	}
}

func (h *genericHelper[C]) fire(change C, final bool) {
	var zero C
	invalidations, subInvalidations, changes := h.invalidations, h.subInvalidations, h.changes

	wasDispatching := h.dispatching
	h.dispatching = true
	defer func() { h.dispatching = wasDispatching }()

	if change != zero {
		for _, entry := range invalidations {
			callInvalidation(h.source, entry)
		}
		for _, entry := range changes {
			callChange(entry, change)
		}
	}
	if change == zero || final {
		for _, entry := range subInvalidations {
			callSubInvalidation(h.source, entry, change == zero)
		}
	}
}

func appendEntry[T any](entries []T, entry T, dispatching bool) []T {
	if dispatching {
		entries = slices.Clip(entries)
	}
	return append(entries, entry)
}

func deleteEntry[T any](entries []T, i int, dispatching bool) []T {
	if dispatching {
		entries = slices.Clone(entries)
	}
	return slices.Delete(entries, i, i+1)
}
