package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// Directories that hold dependencies, build output, or VCS state. Nothing
// inside them belongs to the code under review.
var defaultSkipDirs = map[string]struct{}{
	".git": {}, "__pycache__": {}, "node_modules": {}, "bin": {}, "obj": {}, ".venv": {}, "venv": {},
}

var skipFileNames = map[string]struct{}{
	".DS_Store": {},
}

type walkResult struct {
	files    []string
	skipped  int
	warnings []model.Warning
}

// ListFiles exposes the walker to language analyzers so every scanner in the
// pipeline sees the same candidate set in the same order.
func ListFiles(root string, exts []string, extraSkipDirs []string) ([]string, []model.Warning, error) {
	res, err := collectFiles(root, exts, extraSkipDirs)
	if err != nil {
		return nil, nil, err
	}
	return res.files, res.warnings, nil
}

// collectFiles walks root and returns the relative, slash-separated paths of
// candidate files, in lexical order. Only files whose extension appears in
// exts are candidates; symlinks and non-regular files are skipped.
func collectFiles(root string, exts []string, extraSkipDirs []string) (walkResult, error) {
	res := walkResult{files: make([]string, 0, 256)}

	wanted := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		wanted[ext] = struct{}{}
	}
	if len(wanted) == 0 {
		return res, nil
	}

	skipDirs := make(map[string]struct{}, len(defaultSkipDirs)+len(extraSkipDirs))
	for name := range defaultSkipDirs {
		skipDirs[name] = struct{}{}
	}
	for _, name := range extraSkipDirs {
		name = strings.TrimSpace(name)
		if name != "" {
			skipDirs[name] = struct{}{}
		}
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			res.warnings = append(res.warnings, model.Warning{
				Stage:   model.WarnFile,
				Message: fmt.Sprintf("walk %s: %v", path, walkErr),
			})
			res.skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if d.Type()&os.ModeSymlink != 0 {
			res.skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			res.skipped++
			return nil
		}
		if _, skip := skipFileNames[name]; skip {
			return nil
		}
		if _, ok := wanted[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		res.files = append(res.files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return walkResult{}, fmt.Errorf("walk source tree: %w", err)
	}

	// WalkDir visits entries in lexical order, so res.files is already
	// sorted and the scan order is stable across runs and platforms.
	return res, nil
}
