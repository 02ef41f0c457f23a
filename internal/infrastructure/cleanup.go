package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const extPlaceholder = ".%(ext)s"

var (
	formatFragmentPattern = regexp.MustCompile(`^f\d+\.\w+(\.part)?$`)
	thumbnailExts         = map[string]bool{"jpg": true, "jpeg": true, "webp": true, "png": true}
)

// PartialFileCleaner removes the leftovers of an interrupted fetch
type PartialFileCleaner struct {
	logger *zap.Logger
}

// NewPartialFileCleaner creates a cleaner
func NewPartialFileCleaner(log *zap.Logger) *PartialFileCleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &PartialFileCleaner{logger: log}
}

// RemovePartialFiles deletes partial downloads, fragment files and temp merges that share the
// output path's base name. Thumbnails are removed too when withThumbnails is set.
// outputPath may be a template ending in .%(ext)s or a concrete destination file.
func (c *PartialFileCleaner) RemovePartialFiles(outputPath string, withThumbnails bool) ([]string, error) {
	dir := filepath.Dir(outputPath)
	base := stemOf(filepath.Base(outputPath))
	if base == "" || strings.Contains(base, "%(") {
		// title was never resolved, nothing can be matched safely
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() || !isLeftover(entry.Name(), base, withThumbnails) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("Failed to remove partial file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed = append(removed, path)
	}

	if len(removed) > 0 {
		c.logger.Info("Removed partial files", zap.Strings("paths", removed))
	}
	return removed, nil
}

// stemOf strips the extension placeholder or the real extension plus any .fNNN format suffix
func stemOf(name string) string {
	if strings.HasSuffix(name, extPlaceholder) {
		return strings.TrimSuffix(name, extPlaceholder)
	}
	name = strings.TrimSuffix(name, ".part")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if ext := filepath.Ext(name); ext != "" && formatFragmentPattern.MatchString(strings.TrimPrefix(ext, ".")+".x") {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func isLeftover(name, base string, withThumbnails bool) bool {
	if !strings.HasPrefix(name, base+".") {
		return false
	}
	rest := name[len(base)+1:]
	switch {
	case strings.HasSuffix(rest, ".part"),
		strings.Contains(rest, ".part-Frag"),
		strings.HasSuffix(rest, ".ytdl"),
		strings.HasPrefix(rest, "temp."),
		strings.Contains(rest, ".temp."),
		formatFragmentPattern.MatchString(rest):
		return true
	}
	return withThumbnails && thumbnailExts[strings.ToLower(rest)]
}
