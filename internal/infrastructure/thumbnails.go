package infrastructure

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

var errFound = errors.New("found")

// ThumbnailDirIndex looks for already fetched thumbnails below a root directory
type ThumbnailDirIndex struct {
	root string
}

// NewThumbnailDirIndex creates an index rooted at dir
func NewThumbnailDirIndex(dir string) *ThumbnailDirIndex {
	return &ThumbnailDirIndex{root: dir}
}

// HasThumbnail reports whether an image named name.<ext> exists anywhere under the root
func (i *ThumbnailDirIndex) HasThumbnail(name string) bool {
	if i.root == "" || name == "" {
		return false
	}
	err := filepath.WalkDir(i.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped
			if d != nil && d.IsDir() && path != i.root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		file := d.Name()
		ext := filepath.Ext(file)
		if thumbnailExts[strings.ToLower(strings.TrimPrefix(ext, "."))] && strings.TrimSuffix(file, ext) == name {
			return errFound
		}
		return nil
	})
	return errors.Is(err, errFound)
}
