package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ModuleFileName is the module binary expected inside a plugin directory.
const ModuleFileName = "plugin.wasm"

// DirSource resolves plugin sources as directories under a root: the source
// location is a directory-like path and the module bytes come from its
// plugin.wasm. Path traversal outside the root is rejected.
type DirSource struct {
	root string
}

// NewDirSource creates a DirSource rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Resolve reads the module binary for sourceLocation.
func (s *DirSource) Resolve(ctx context.Context, sourceLocation string) ([]byte, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(sourceLocation))
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("plugin source %q escapes plugin root", sourceLocation)
	}

	data, err := os.ReadFile(filepath.Join(dir, ModuleFileName))
	if err != nil {
		return nil, fmt.Errorf("read plugin module: %w", err)
	}
	return data, nil
}
