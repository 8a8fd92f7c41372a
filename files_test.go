/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{2_500_000, "2.5 MB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanReadableSize(tt.in))
	}
}

func TestSampleIsDeterministic(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)

	a := c.Sample(42, 12)
	b := c.Sample(42, 12)
	require.Len(t, a, 12)
	assert.Equal(t, a, b)

	seen := map[string]bool{}
	for _, name := range a {
		assert.False(t, seen[name], "duplicate %s", name)
		assert.True(t, c.Contains(name))
		seen[name] = true
	}

	assert.NotEqual(t, a, c.Sample(43, 12))
}

func TestClampImages(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)

	tests := []struct {
		in, want int
	}{
		{0, defaultMaxImages},
		{-3, defaultMaxImages},
		{1, minImages},
		{10, 10},
		{1000, c.Len()},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.clampImages(tt.in), "clampImages(%d)", tt.in)
	}
}

func TestPlaceholderImages(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)

	data, ct, err := c.Read("alex.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, _, err = c.Read("../secrets.png")
	assert.ErrorIs(t, err, errUnknownImage)
}

func TestCatalogDirectory(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"a.png", "b.JPG", "c.gif", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	_, err := loadCatalog(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.webp"), []byte("d"), 0o644))

	c, err := loadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())
	assert.False(t, c.Contains("notes.txt"))

	data, ct, err := c.Read("b.JPG")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, []byte("b.JPG"), data)
}

func TestSaveUpload(t *testing.T) {
	dir := t.TempDir()

	name, written, err := saveUpload(dir, "Me.PNG", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), written)
	assert.True(t, strings.HasSuffix(name, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	_, _, err = saveUpload(dir, "script.sh", strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, errBadUpload)

	other, _, err := saveUpload(dir, "me.png", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}
