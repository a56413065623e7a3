// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store spills feature and peak-group batches to an ordered
// on-disk key-value store, using modernc.org/kv with big-endian struct keys so that a scan of
// the store visits records in RT (or mass) order without a separate
// sort step.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"modernc.org/kv"
)

var order = binary.BigEndian

// FeatureKey orders spilled features by RT, then m/z, then charge, so
// that a forward scan of the store yields features sorted the way the
// final output wants them.
type FeatureKey struct {
	RT     float64
	MZ     float64
	Charge int32
}

// MarshalFeatureKey encodes k as a fixed-width big-endian byte string
// whose lexicographic order matches k's field order.
func MarshalFeatureKey(k FeatureKey) []byte {
	var buf [20]byte
	order.PutUint64(buf[0:8], math.Float64bits(k.RT))
	order.PutUint64(buf[8:16], math.Float64bits(k.MZ))
	order.PutUint32(buf[16:20], uint32(k.Charge))
	return buf[:]
}

// UnmarshalFeatureKey decodes a key produced by MarshalFeatureKey.
func UnmarshalFeatureKey(data []byte) FeatureKey {
	return FeatureKey{
		RT:     math.Float64frombits(order.Uint64(data[0:8])),
		MZ:     math.Float64frombits(order.Uint64(data[8:16])),
		Charge: int32(order.Uint32(data[16:20])),
	}
}

// ByFeatureKey is a kv compare function ordering by RT, m/z, then
// charge, matching MarshalFeatureKey's field order.
func ByFeatureKey(x, y []byte) int {
	if bytes.Equal(x, y) {
		return 0
	}
	rx, ry := UnmarshalFeatureKey(x), UnmarshalFeatureKey(y)
	switch {
	case rx.RT < ry.RT:
		return -1
	case rx.RT > ry.RT:
		return 1
	}
	switch {
	case rx.MZ < ry.MZ:
		return -1
	case rx.MZ > ry.MZ:
		return 1
	}
	switch {
	case rx.Charge < ry.Charge:
		return -1
	case rx.Charge > ry.Charge:
		return 1
	}
	return 0
}

// PeakGroupKey orders spilled FLASHDeconv peak groups by spectrum
// index then mass.
type PeakGroupKey struct {
	SpecIndex int32
	Mass      float64
}

// MarshalPeakGroupKey encodes k as a fixed-width big-endian byte
// string whose lexicographic order matches k's field order.
func MarshalPeakGroupKey(k PeakGroupKey) []byte {
	var buf [12]byte
	order.PutUint32(buf[0:4], uint32(k.SpecIndex))
	order.PutUint64(buf[4:12], math.Float64bits(k.Mass))
	return buf[:]
}

// UnmarshalPeakGroupKey decodes a key produced by MarshalPeakGroupKey.
func UnmarshalPeakGroupKey(data []byte) PeakGroupKey {
	return PeakGroupKey{
		SpecIndex: int32(order.Uint32(data[0:4])),
		Mass:      math.Float64frombits(order.Uint64(data[4:12])),
	}
}

// ByPeakGroupKey is a kv compare function ordering by spectrum index
// then mass, matching MarshalPeakGroupKey's field order.
func ByPeakGroupKey(x, y []byte) int {
	if bytes.Equal(x, y) {
		return 0
	}
	rx, ry := UnmarshalPeakGroupKey(x), UnmarshalPeakGroupKey(y)
	switch {
	case rx.SpecIndex < ry.SpecIndex:
		return -1
	case rx.SpecIndex > ry.SpecIndex:
		return 1
	}
	switch {
	case rx.Mass < ry.Mass:
		return -1
	case rx.Mass > ry.Mass:
		return 1
	}
	return 0
}

// Spill is an ordered on-disk batch of records keyed by a comparator
// over fixed-width keys, created fresh at path.
type Spill struct {
	db *kv.DB
}

// CreateFeatureSpill creates a new ordered store at path, with kv.Create,
// for Feature-shaped JSON values keyed by FeatureKey.
func CreateFeatureSpill(path string) (*Spill, error) {
	db, err := kv.Create(path, &kv.Options{Compare: ByFeatureKey})
	if err != nil {
		return nil, fmt.Errorf("store: creating feature spill: %w", err)
	}
	return &Spill{db: db}, nil
}

// CreatePeakGroupSpill creates a new ordered store at path, with
// kv.Create, for PeakGroup-shaped JSON values keyed by
// PeakGroupKey.
func CreatePeakGroupSpill(path string) (*Spill, error) {
	db, err := kv.Create(path, &kv.Options{Compare: ByPeakGroupKey})
	if err != nil {
		return nil, fmt.Errorf("store: creating peak group spill: %w", err)
	}
	return &Spill{db: db}, nil
}

// OpenSpill opens an existing store at path with the given comparator,
// for use by audit and replay tools.
func OpenSpill(path string, compare func(x, y []byte) int) (*Spill, error) {
	db, err := kv.Open(path, &kv.Options{Compare: compare})
	if err != nil {
		return nil, fmt.Errorf("store: opening spill: %w", err)
	}
	return &Spill{db: db}, nil
}

// Put JSON-marshals v and stores it under key.
func (s *Spill) Put(key []byte, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshalling record: %w", err)
	}
	if err := s.db.Set(key, b); err != nil {
		return fmt.Errorf("store: writing record: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (s *Spill) Close() error { return s.db.Close() }

// Walk visits every record in key order, decoding its value into a
// fresh instance produced by newValue and passing it to fn. Walk stops
// and returns fn's error if it returns non-nil.
func (s *Spill) Walk(newValue func() interface{}, fn func(key []byte, value interface{}) error) error {
	it, err := s.db.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("store: seeking first record: %w", err)
	}
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("store: scanning records: %w", err)
		}
		val := newValue()
		if err := json.Unmarshal(v, val); err != nil {
			return fmt.Errorf("store: unmarshalling record: %w", err)
		}
		if err := fn(k, val); err != nil {
			return err
		}
	}
}
