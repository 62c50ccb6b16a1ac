package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// LoadFile reads one catalog file. The language key is the file name stem
// ("dotnet.yaml" → "dotnet"). Symlinked catalog files are refused.
func LoadFile(path string) (Catalog, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return Catalog{}, fmt.Errorf("refusing symlinked catalog file: %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	c.Language = languageFromFileName(path)
	c = Normalize(c)
	if err := Validate(c); err != nil {
		return Catalog{}, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadDir loads every catalog in dir, keyed by language. A missing dir is an
// empty result. One malformed file disables that language's catalog with a
// warning; it never fails the load.
func LoadDir(dir string) (map[string]Catalog, []model.Warning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Catalog{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read catalogs dir: %w", err)
	}

	out := make(map[string]Catalog, len(entries))
	warnings := make([]model.Warning, 0)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		c, loadErr := LoadFile(path)
		if loadErr != nil {
			warnings = append(warnings, model.Warning{Stage: model.WarnCatalog, Message: loadErr.Error()})
			continue
		}
		if prev, dup := out[c.Language]; dup {
			warnings = append(warnings, model.Warning{
				Stage:   model.WarnCatalog,
				Message: fmt.Sprintf("duplicate catalog for language %q at %s ignored (already loaded %d patterns)", c.Language, path, len(prev.Patterns)),
			})
			continue
		}
		out[c.Language] = c
	}

	return out, warnings, nil
}

// Resolve returns the catalog for a language: a user catalog from dir when
// present, the builtin otherwise. ok is false when neither exists — a valid,
// empty-scan case, not an error.
func Resolve(language string, dir string) (Catalog, []model.Warning, bool) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return Catalog{}, nil, false
	}

	warnings := make([]model.Warning, 0)
	if strings.TrimSpace(dir) != "" {
		loaded, loadWarnings, err := LoadDir(dir)
		warnings = append(warnings, loadWarnings...)
		if err != nil {
			warnings = append(warnings, model.Warning{Stage: model.WarnCatalog, Message: err.Error()})
		} else if c, ok := loaded[language]; ok {
			return c, warnings, true
		}
	}

	if c, ok := Builtin(language); ok {
		return c, warnings, true
	}
	return Catalog{}, warnings, false
}

func languageFromFileName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(strings.TrimSpace(base))
}
