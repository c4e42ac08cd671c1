// Package images manages the local image library: scanning the folder,
// picking a random image that has not been used recently, remembering
// what was used, and uploading files to a public host for platforms
// that require a URL.
package images

import (
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Image describes one file found in the library.
type Image struct {
	Name     string // base filename
	RelPath  string // path relative to the library root; ledger key
	FullPath string // absolute or root-joined path for reading
	Size     int64
}

// Fetcher scans a folder tree for image files.
type Fetcher struct {
	logger     *slog.Logger
	root       string
	extensions map[string]struct{}
}

// NewFetcher creates a fetcher over the given folder, creating it when
// missing so a fresh deployment starts clean instead of erroring.
func NewFetcher(logger *slog.Logger, root string, extensions []string) (*Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(extensions) == 0 {
		extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}

	return &Fetcher{logger: logger, root: root, extensions: exts}, nil
}

// All walks the library recursively and returns every image file.
// Unreadable subtrees are skipped, not fatal.
func (f *Fetcher) All() []Image {
	var found []Image
	_ = filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			f.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := f.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		found = append(found, Image{
			Name:     d.Name(),
			RelPath:  rel,
			FullPath: path,
			Size:     size,
		})
		return nil
	})

	f.logger.Debug("scanned image library", "root", f.root, "count", len(found))
	return found
}

// RandomUnused picks a random image whose relative path is not in
// exclude. When every image has been used, the exclusion is ignored and
// any image may repeat. Returns ok=false only when the library is empty.
func (f *Fetcher) RandomUnused(exclude map[string]struct{}) (Image, bool) {
	all := f.All()
	if len(all) == 0 {
		return Image{}, false
	}

	fresh := all
	if len(exclude) > 0 {
		fresh = make([]Image, 0, len(all))
		for _, img := range all {
			if _, used := exclude[img.RelPath]; !used {
				fresh = append(fresh, img)
			}
		}
		if len(fresh) == 0 {
			// Library exhausted; start repeating.
			fresh = all
		}
	}

	return fresh[rand.Intn(len(fresh))], true
}
