package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// skipDirs lists directories never scanned when a directory is given.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	DirName:        true,
}

// CollectFiles expands args into a sorted list of regular files. Files are
// taken as given; directories are walked, skipping skipDirs. A missing
// argument is an error.
func CollectFiles(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // skip unreadable
			}
			if info.IsDir() {
				if skipDirs[info.Name()] && path != arg {
					return filepath.SkipDir
				}
				return nil
			}
			if info.Mode().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}
