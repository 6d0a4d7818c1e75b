package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/corpusit/core"
)

// Scan enumerates the content units in a source directory. One unit per
// regular file, identified by its slash-separated path relative to dir.
// Hidden files are skipped. Units are returned sorted by path so callers
// get a stable order across runs.
//
// A missing or non-directory path is a fatal error (ErrSourceDirMissing),
// not an empty result: the pipeline must never silently substitute an empty
// corpus for a misconfigured source.
func Scan(dir string) ([]core.ContentUnit, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceDirMissing, dir)
		}
		return nil, fmt.Errorf("stat source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceDirMissing, dir)
	}

	var units []core.ContentUnit
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		units = append(units, core.ContentUnit{
			Path:    filepath.ToSlash(rel),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	slices.SortFunc(units, func(a, b core.ContentUnit) int {
		return strings.Compare(a.Path, b.Path)
	})
	return units, nil
}
