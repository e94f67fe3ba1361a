package runner

import (
	"os"
	"path/filepath"
	"sort"
)

// FileFilter decides whether a discovered path is a candidate test file.
type FileFilter func(path string) bool

// ExtensionFilter returns a FileFilter matching files by suffix, the
// runner's default discovery rule.
func ExtensionFilter(ext string) FileFilter {
	return func(path string) bool {
		return filepath.Ext(path) == ext
	}
}

// walk performs the producer's depth-first traversal of root, pruning any
// directory literally named "auxiliary" (its contents are built on demand
// by the auxiliary builder, never discovered as standalone tests), and
// visiting each directory's entries in filename order for determinism. It
// sends every path satisfying filter on work, then closes the channel.
func walk(root string, filter FileFilter, work chan<- string, done <-chan struct{}) {
	defer close(work)
	walkDir(root, filter, work, done)
}

func walkDir(dir string, filter FileFilter, work chan<- string, done <-chan struct{}) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if e.Name() == "auxiliary" {
				continue
			}
			walkDir(full, filter, work, done)
			continue
		}
		if !filter(full) {
			continue
		}
		select {
		case work <- full:
		case <-done:
			return
		}
	}
}
