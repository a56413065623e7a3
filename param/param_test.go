// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param_test

import (
	"testing"

	"github.com/kortschak/msdeconv/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	tr := param.NewTree("global")
	err := tr.RegisterRanged("tol", param.Float, param.Value{F: 10}, 0, 100, "ppm tolerance", 0)
	require.NoError(t, err)

	v, err := tr.Float("tol")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestDuplicateKeyRejected(t *testing.T) {
	tr := param.NewTree("global")
	require.NoError(t, tr.Register(param.Entry{Key: "x", Kind: param.Int}))
	err := tr.Register(param.Entry{Key: "x", Kind: param.Int})
	assert.Error(t, err)
}

func TestRangeValidation(t *testing.T) {
	tr := param.NewTree("global")
	require.NoError(t, tr.RegisterRanged("charge", param.Int, param.Value{I: 2}, 1, 10, "charge", 0))

	assert.NoError(t, tr.Set("charge", param.Value{I: 5}))
	assert.Error(t, tr.Set("charge", param.Value{I: 50}))
}

func TestEnumValidation(t *testing.T) {
	tr := param.NewTree("global")
	require.NoError(t, tr.RegisterEnum("shape", "symmetric", []string{"symmetric", "asymmetric"}, "rt shape", 0))

	assert.NoError(t, tr.Set("shape", param.Value{S: "asymmetric"}))
	assert.Error(t, tr.Set("shape", param.Value{S: "triangular"}))
}

func TestSectionInheritance(t *testing.T) {
	root := param.NewTree("global")
	require.NoError(t, root.RegisterRanged("tol", param.Float, param.Value{F: 10}, 0, 100, "tolerance", 0))

	child := root.Section("instance1")
	v, err := child.Float("tol")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	require.NoError(t, child.Set("tol", param.Value{F: 20}))
	childVal, err := child.Float("tol")
	require.NoError(t, err)
	assert.Equal(t, 20.0, childVal)

	rootVal, err := root.Float("tol")
	require.NoError(t, err)
	assert.Equal(t, 10.0, rootVal, "setting the child section must not affect the parent")
}

func TestUnknownKeyErrors(t *testing.T) {
	tr := param.NewTree("global")
	_, err := tr.Float("missing")
	assert.Error(t, err)
	assert.Error(t, tr.Set("missing", param.Value{F: 1}))
}

func TestDumpListsSortedKeys(t *testing.T) {
	tr := param.NewTree("global")
	require.NoError(t, tr.Register(param.Entry{Key: "b", Kind: param.Int, Description: "second"}))
	require.NoError(t, tr.Register(param.Entry{Key: "a", Kind: param.Int, Description: "first"}))

	out := tr.Dump()
	aIdx := indexOf(out, "a\t")
	bIdx := indexOf(out, "b\t")
	require.NotEqual(t, -1, aIdx)
	require.NotEqual(t, -1, bIdx)
	assert.Less(t, aIdx, bIdx)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
