package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docfields/constants"
)

// Document is a file discovered for extraction.
type Document struct {
	Path     string
	MimeType string
	Size     int64
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// AllowedExt reports whether ext (with or without dot) is a supported document extension.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// DocumentFromPath stats path and derives its MIME type from the extension.
func DocumentFromPath(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, err
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}
	mt := constants.MimeFromExt(filepath.Ext(path))
	if mt == "" {
		return Document{}, fmt.Errorf("%s: unsupported extension", path)
	}
	return Document{Path: path, MimeType: mt, Size: info.Size()}, nil
}

// extSet builds the lowercase extension filter; empty input means every supported extension.
func extSet(includeExts []string) map[string]struct{} {
	exts := map[string]struct{}{}
	for _, e := range includeExts {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			exts[e] = struct{}{}
		}
	}
	if len(exts) == 0 {
		for e := range constants.AllowedExtensions {
			exts[e] = struct{}{}
		}
	}
	return exts
}

func matches(path string, exts map[string]struct{}) bool {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := exts[ext]; !ok {
		return false
	}
	return AllowedExt(ext)
}
