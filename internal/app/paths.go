package app

import (
	"os"
	"path/filepath"
)

// DirName is the per-project state directory.
const DirName = ".licscan"

// Paths holds all resolved filesystem paths for the .licscan/ project directory.
type Paths struct {
	Root   string // .licscan/
	DB     string // .licscan/index.db
	Config string // .licscan/config.yml
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, DirName)
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "index.db"),
		Config: filepath.Join(root, "config.yml"),
	}
}

// EnsureDirs creates .licscan/. Idempotent.
func (p *Paths) EnsureDirs() error {
	return os.MkdirAll(p.Root, 0755)
}
