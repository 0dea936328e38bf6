// Package pkgmodel defines the immutable package record and the
// insertion-order-preserving map type used for its require/conflict/
// provide/replace fields, matching the data model's case-insensitive,
// insertion-order-observable dependency maps.
package pkgmodel

import "strings"

// OrderedMap is a name -> constraint-string map that preserves
// insertion order for deterministic iteration (rule generation and
// generated-artifact output both depend on manifest order), while
// still offering O(1) lookup.
type OrderedMap struct {
	order  []string
	values map[string]string
}

// NewOrderedMap returns an empty OrderedMap ready for use.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]string)}
}

// Set inserts or overwrites name -> value. Overwriting an existing key
// does not change its position in iteration order.
func (m *OrderedMap) Set(name, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[name]; !exists {
		m.order = append(m.order, name)
	}
	m.values[name] = value
}

// Get returns the value for name and whether it was present.
func (m *OrderedMap) Get(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	if v, ok := m.values[name]; ok {
		return v, true
	}
	for _, k := range m.order {
		if strings.EqualFold(k, name) {
			return m.values[k], true
		}
	}
	return "", false
}

// Len reports the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Each calls fn for every entry in insertion order.
func (m *OrderedMap) Each(fn func(name, value string)) {
	if m == nil {
		return
	}
	for _, k := range m.order {
		fn(k, m.values[k])
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// LowerName lowercases a package name for case-insensitive indexing;
// pretty (display) names are kept separately on Package.
func LowerName(name string) string {
	return strings.ToLower(name)
}
