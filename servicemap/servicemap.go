// Package servicemap provides a keyed immutable container of services.
// Values are bound under opaque typed tags; lookups recover the static type
// of the tag. Maps are copy-on-write: Add and Merge return fresh maps and
// never mutate their receivers.
package servicemap

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/LuxXx/effect/shared/helper"
)

// Tag identifies a service of type S. Two tags created by separate NewTag
// calls are always distinct, even when their labels collide: identity comes
// from a generated id, not from the label.
type Tag[S any] struct {
	id    string
	label string
}

// NewTag mints a fresh tag. The label is for diagnostics only.
func NewTag[S any](label string) *Tag[S] {
	return &Tag[S]{
		id:    uuid.NewString(),
		label: label,
	}
}

// String returns the diagnostic form of the tag.
func (t *Tag[S]) String() string {
	return fmt.Sprintf("%s(%s)", t.label, t.id)
}

// ServiceMap binds tags to service values. The zero value is the empty map.
type ServiceMap struct {
	entries map[string]any
}

// Empty returns a map with no bindings.
func Empty() ServiceMap {
	return ServiceMap{}
}

// Len returns the number of bindings.
func (sm ServiceMap) Len() int {
	return len(sm.entries)
}

// Add returns a copy of sm with svc bound under tag. A prior binding under
// the same tag is replaced.
func Add[S any](sm ServiceMap, tag *Tag[S], svc S) ServiceMap {
	next := make(map[string]any, len(sm.entries)+1)
	for k, v := range sm.entries {
		next[k] = v
	}
	next[tag.id] = svc
	return ServiceMap{entries: next}
}

// Get looks up the service bound under tag. A missing binding and a binding
// of the wrong dynamic type both report false; the latter indicates a
// programmer error at the Add site.
func Get[S any](sm ServiceMap, tag *Tag[S]) (S, bool) {
	return helper.TypedValueOf2[S](func() (any, bool) {
		v, ok := sm.entries[tag.id]
		return v, ok
	})
}

// Merge returns a map holding the bindings of both sm and other. Where both
// bind the same tag, other wins.
func (sm ServiceMap) Merge(other ServiceMap) ServiceMap {
	if len(other.entries) == 0 {
		return sm
	}
	if len(sm.entries) == 0 {
		return other
	}
	next := make(map[string]any, len(sm.entries)+len(other.entries))
	for k, v := range sm.entries {
		next[k] = v
	}
	for k, v := range other.entries {
		next[k] = v
	}
	return ServiceMap{entries: next}
}
