// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/stretchr/testify/require"
)

func Test_format01(tst *testing.T) {

	chk.PrintTitle("format01. sources are gofmt-clean")

	var files []string
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != "." && (strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(path, ".go") {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(tst, err)
	require.NotEmpty(tst, files)
	for _, fn := range files {
		src, err := os.ReadFile(fn)
		require.NoError(tst, err)
		res, err := format.Source(src)
		if err != nil {
			tst.Errorf("%s: %v\n", fn, err)
			continue
		}
		if !bytes.Equal(src, res) {
			tst.Errorf("%s is not gofmt-clean\n", fn)
		}
	}
}
