// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// auditdb allows the spilled kv stores produced by findfeatures and
// flashdeconv to be inspected outside of a full run. There are two
// kinds of store it understands, named by the suffix of the base of the
// file given:
//   - features.db  — Feature records spilled by findfeatures, keyed by
//     (rt, mz, charge)
//   - peakgroups.db — PeakGroup records spilled by flashdeconv, keyed
//     by (spec index, mass)
//
// Output from auditdb is a JSON stream on stdout, one record per line.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kortschak/msdeconv/feature"
	"github.com/kortschak/msdeconv/flash"
	"github.com/kortschak/msdeconv/internal/store"
)

func main() {
	path := flag.String("db", "", "specify db file to audit (base must end in 'features.db' or 'peakgroups.db')")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -db <features.db|peakgroups.db> >out.jsonl

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	base := filepath.Base(*path)
	var kind string
	switch {
	case strings.HasSuffix(base, "peakgroups.db"):
		kind = "peakgroups.db"
	case strings.HasSuffix(base, "features.db"):
		kind = "features.db"
	default:
		flag.Usage()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)

	switch kind {
	case "features.db":
		s, err := store.OpenSpill(*path, store.ByFeatureKey)
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()
		err = s.Walk(func() interface{} { return new(feature.Feature) }, func(key []byte, v interface{}) error {
			k := store.UnmarshalFeatureKey(key)
			rec := struct {
				Key     store.FeatureKey
				Feature *feature.Feature
			}{k, v.(*feature.Feature)}
			return enc.Encode(rec)
		})
		if err != nil {
			log.Fatal(err)
		}
	case "peakgroups.db":
		s, err := store.OpenSpill(*path, store.ByPeakGroupKey)
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()
		err = s.Walk(func() interface{} { return new(flash.PeakGroup) }, func(key []byte, v interface{}) error {
			k := store.UnmarshalPeakGroupKey(key)
			rec := struct {
				Key       store.PeakGroupKey
				PeakGroup *flash.PeakGroup
			}{k, v.(*flash.PeakGroup)}
			return enc.Encode(rec)
		})
		if err != nil {
			log.Fatal(err)
		}
	}
}
