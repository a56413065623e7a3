// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package param provides a typed, validated, self-documenting parameter
// registry used by the feature finder and FLASHDeconv engines. Entries
// are registered with a default, an optional range or valid-string set
// and a set of tags describing how a tool should present them, then
// resolved into the typed config structs that each component consumes.
package param

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the type of value held by an Entry.
type Kind int

const (
	Int Kind = iota
	Float
	String
	StringList
	Bool
)

// Tag is a bitmask of presentation hints attached to an Entry, mirroring
// the advanced/required/input/output distinctions used throughout the
// OpenMS-style parameter trees this registry generalizes.
type Tag uint8

const (
	Advanced Tag = 1 << iota
	Required
	Input
	Output
)

// Entry is one registered parameter.
type Entry struct {
	Key         string
	Kind        Kind
	Description string
	Tags        Tag

	def          Value
	val          Value
	set          bool
	rangeLo      float64
	rangeHi      float64
	hasRange     bool
	validStrings []string
}

// Value is the tagged-union payload of an Entry.
type Value struct {
	I    int
	F    float64
	S    string
	SS   []string
	Bool bool
}

// Tree is a hierarchical set of Entry values with instance/common/global
// inheritance: a lookup in a child section falls back to its parent when
// the child has not set the key.
type Tree struct {
	name     string
	parent   *Tree
	entries  map[string]*Entry
	children map[string]*Tree
}

// NewTree returns an empty, unparented Tree named name (conventionally
// "global", "common" or an algorithm instance name).
func NewTree(name string) *Tree {
	return &Tree{name: name, entries: make(map[string]*Entry)}
}

// Section returns, creating if necessary, a child Tree of t that inherits
// any key t does not itself set.
func (t *Tree) Section(name string) *Tree {
	if t.children == nil {
		t.children = make(map[string]*Tree)
	}
	c, ok := t.children[name]
	if !ok {
		c = &Tree{name: name, parent: t, entries: make(map[string]*Entry)}
		t.children[name] = c
	}
	return c
}

// Register adds e to t. It is an error to register the same key twice in
// the same Tree.
func (t *Tree) Register(e Entry) error {
	if _, ok := t.entries[e.Key]; ok {
		return fmt.Errorf("param: duplicate key %q in section %q", e.Key, t.name)
	}
	e.val = e.def
	cp := e
	t.entries[e.Key] = &cp
	return nil
}

// RegisterRanged registers a numeric entry with an inclusive [lo, hi]
// range, validated on every Set.
func (t *Tree) RegisterRanged(key string, kind Kind, def Value, lo, hi float64, desc string, tags Tag) error {
	e := Entry{Key: key, Kind: kind, Description: desc, Tags: tags, def: def, rangeLo: lo, rangeHi: hi, hasRange: true}
	return t.Register(e)
}

// RegisterEnum registers a string entry constrained to one of valid.
func (t *Tree) RegisterEnum(key string, def string, valid []string, desc string, tags Tag) error {
	e := Entry{Key: key, Kind: String, Description: desc, Tags: tags, def: Value{S: def}, validStrings: valid}
	return t.Register(e)
}

func (t *Tree) lookup(key string) (*Entry, *Tree) {
	for s := t; s != nil; s = s.parent {
		if e, ok := s.entries[key]; ok {
			return e, s
		}
	}
	return nil, nil
}

// entryFor returns the entry that owns key, searching this section then
// its ancestors, preferring the nearest Set value.
func (t *Tree) entryFor(key string) (*Entry, error) {
	e, _ := t.lookup(key)
	if e == nil {
		return nil, fmt.Errorf("param: unknown key %q", key)
	}
	return e, nil
}

// Set validates and stores a value for key in this section, shadowing any
// inherited value. Range and valid-string violations are reported with
// the parameter name, per the "range error in parameter lookup" error
// kind: these are fatal configuration errors, not recoverable outcomes.
func (t *Tree) Set(key string, v Value) error {
	e, ok := t.entries[key]
	if !ok {
		parent, _ := t.lookup(key)
		if parent == nil {
			return fmt.Errorf("param: unknown key %q", key)
		}
		cp := *parent
		e = &cp
		t.entries[key] = e
	}
	if err := validate(e, v); err != nil {
		return fmt.Errorf("param: %s: %w", key, err)
	}
	e.val = v
	e.set = true
	return nil
}

func validate(e *Entry, v Value) error {
	switch e.Kind {
	case Int:
		if e.hasRange && (float64(v.I) < e.rangeLo || float64(v.I) > e.rangeHi) {
			return fmt.Errorf("value %d out of range [%g, %g]", v.I, e.rangeLo, e.rangeHi)
		}
	case Float:
		if e.hasRange && (v.F < e.rangeLo || v.F > e.rangeHi) {
			return fmt.Errorf("value %g out of range [%g, %g]", v.F, e.rangeLo, e.rangeHi)
		}
	case String:
		if len(e.validStrings) > 0 && !contains(e.validStrings, v.S) {
			return fmt.Errorf("value %q not one of %v", v.S, e.validStrings)
		}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// Int, Float, GetString, Bool and StringList look up a value, returning
// an error if the key is unknown. The entry's Kind is not checked
// against the accessor used.

func (t *Tree) Int(key string) (int, error) {
	e, err := t.entryFor(key)
	if err != nil {
		return 0, err
	}
	return e.val.I, nil
}

func (t *Tree) Float(key string) (float64, error) {
	e, err := t.entryFor(key)
	if err != nil {
		return 0, err
	}
	return e.val.F, nil
}

func (t *Tree) GetString(key string) (string, error) {
	e, err := t.entryFor(key)
	if err != nil {
		return "", err
	}
	return e.val.S, nil
}

func (t *Tree) Bool(key string) (bool, error) {
	e, err := t.entryFor(key)
	if err != nil {
		return false, err
	}
	return e.val.Bool, nil
}

func (t *Tree) StringList(key string) ([]string, error) {
	e, err := t.entryFor(key)
	if err != nil {
		return nil, err
	}
	return e.val.SS, nil
}

// MustInt is like Int but panics on error; it is used only for keys a
// component registers itself, where a lookup failure is a programmer
// error in the component, not a user-facing fault.
func (t *Tree) MustInt(key string) int {
	v, err := t.Int(key)
	if err != nil {
		panic(err)
	}
	return v
}

// MustFloat is the float64 analogue of MustInt.
func (t *Tree) MustFloat(key string) float64 {
	v, err := t.Float(key)
	if err != nil {
		panic(err)
	}
	return v
}

// Dump writes a human-readable listing of every entry reachable from t,
// section by section, sorted by key - the self-documentation mandated
// for the parameter registry.
func (t *Tree) Dump() string {
	var b strings.Builder
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := t.entries[k]
		fmt.Fprintf(&b, "%s\t%v\t%s\n", e.Key, e.val, e.Description)
	}
	return b.String()
}
