/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	defaultMaxImages = 24
	minImages        = 4
	maxUploadSize    = 5 << 20
	placeholderSize  = 256
)

var (
	errUnknownImage = errors.New("unknown image")
	errBadUpload    = errors.New("unsupported upload type")
)

var imageExtensions = []string{".gif", ".jpeg", ".jpg", ".png", ".webp"}

var placeholderNames = []string{
	"alex", "amara", "bao", "bruno", "carmen", "chen", "dara", "diego",
	"elif", "emeka", "farah", "felix", "gia", "hana", "hugo", "imani",
	"ivan", "jade", "jonas", "kai", "kenji", "lara", "leon", "mai",
	"malik", "nadia", "nico", "omar", "petra", "priya", "quinn", "rafa",
	"rosa", "sami", "sofia", "tariq", "una", "vera", "wren", "yusuf",
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

func isImage(name string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(name)))
}

// Catalog is the set of character images games draw from. Without a
// directory it serves generated placeholders.
type Catalog struct {
	dir   string
	names []string
}

func loadCatalog(dir string) (*Catalog, error) {
	if dir == "" {
		names := make([]string, len(placeholderNames))
		for i, n := range placeholderNames {
			names[i] = n + ".png"
		}
		return &Catalog{names: names}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	c := &Catalog{dir: dir}
	for _, e := range entries {
		if e.Type().IsRegular() && isImage(e.Name()) {
			c.names = append(c.names, e.Name())
		}
	}
	slices.Sort(c.names)

	if len(c.names) < minImages {
		return nil, fmt.Errorf("image directory %s holds %d images, need at least %d", dir, len(c.names), minImages)
	}

	return c, nil
}

func (c *Catalog) Len() int { return len(c.names) }

// clampImages bounds a requested game size to what the catalog can serve.
func (c *Catalog) clampImages(n int) int {
	if n <= 0 {
		n = defaultMaxImages
	}

	return max(min(n, len(c.names)), min(minImages, len(c.names)))
}

// Sample returns n images chosen by seed. The same seed always yields the
// same images in the same order.
func (c *Catalog) Sample(seed int64, n int) []string {
	n = c.clampImages(n)

	r := mathrand.New(mathrand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	perm := r.Perm(len(c.names))

	out := make([]string, n)
	for i := range out {
		out[i] = c.names[perm[i]]
	}

	return out
}

func (c *Catalog) Contains(name string) bool {
	return slices.Contains(c.names, name)
}

// Read returns the bytes and content type of one catalog image.
func (c *Catalog) Read(name string) ([]byte, string, error) {
	if !c.Contains(name) {
		return nil, "", errUnknownImage
	}

	if c.dir == "" {
		png, err := qrcode.Encode(strings.TrimSuffix(name, filepath.Ext(name)), qrcode.Medium, placeholderSize)
		if err != nil {
			return nil, "", err
		}
		return png, "image/png", nil
	}

	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return nil, "", err
	}

	return data, contentType(name), nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gif":
		return "image/gif"
	case ".jpeg", ".jpg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}

	return "application/octet-stream"
}

// saveUpload stores r under dir with a random name that keeps the
// original extension, and returns that name.
func saveUpload(dir, filename string, r io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !isImage(ext) {
		return "", 0, errBadUpload
	}

	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", 0, err
	}
	name := hex.EncodeToString(buf) + ext

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, err
	}

	written, err := io.Copy(f, io.LimitReader(r, maxUploadSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(dir, name))
		return "", 0, err
	}

	return name, written, nil
}
