// Package bom handles the UTF-8 byte order mark the Clausewitz engine
// requires on every localization file. Files without it are silently
// rejected by the game.
package bom

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marker is the 3-byte UTF-8 BOM.
var Marker = []byte{0xEF, 0xBB, 0xBF}

// Has reports whether data starts with a BOM.
func Has(data []byte) bool {
	return bytes.HasPrefix(data, Marker)
}

// Prefix returns data with a BOM prepended, unless one is already
// present.
func Prefix(data []byte) []byte {
	if Has(data) {
		return data
	}
	out := make([]byte, 0, len(Marker)+len(data))
	out = append(out, Marker...)
	return append(out, data...)
}

// Strip returns data without a leading BOM.
func Strip(data []byte) []byte {
	return bytes.TrimPrefix(data, Marker)
}

// AddToFile rewrites path with a BOM prepended if it lacks one.
// Idempotent.
func AddToFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if Has(data) {
		return nil
	}
	if err := os.WriteFile(path, Prefix(data), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// AddToTree walks root and adds a BOM to every .yml/.yaml file.
func AddToTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		return AddToFile(path)
	})
}
