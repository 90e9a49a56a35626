package gen

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// ErrNoModule is returned by ImportPath when no go.mod encloses the directory.
var ErrNoModule = errors.New("no go.mod found")

// ImportPath returns the import path of the package in dir by locating the
// enclosing go.mod and joining its module path with dir's relative path.
func ImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	for root := abs; ; {
		data, err := os.ReadFile(filepath.Join(root, "go.mod"))
		switch {
		case err == nil:
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return "", fmt.Errorf("%s/go.mod: missing module directive", root)
			}
			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return "", fmt.Errorf("relative path: %w", err)
			}
			if rel == "." {
				return modPath, nil
			}
			return path.Join(modPath, filepath.ToSlash(rel)), nil
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("read go.mod: %w", err)
		}

		parent := filepath.Dir(root)
		if parent == root {
			return "", fmt.Errorf("%w above %s", ErrNoModule, abs)
		}
		root = parent
	}
}
