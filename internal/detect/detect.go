// Package detect identifies a repository's technology stack by inspecting
// well-known build files and dependency manifests, falling back to a file
// extension census when no build file is present.
package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// ErrUnknown reports that no signal identified the stack. The census is
// still returned so callers can show what was found.
var ErrUnknown = errors.New("unable to detect project stack")

// Directories whose contents say nothing about the stack being built.
var censusSkipDirs = map[string]struct{}{
	".git":         {},
	"__pycache__":  {},
	"node_modules": {},
	"bin":          {},
	"obj":          {},
	".venv":        {},
	"venv":         {},
}

// Stack inspects the directory at root and returns the detected stack.
// Detection signals are checked in priority order; the first match wins.
func Stack(root string) (model.Stack, error) {
	info, err := os.Stat(root)
	if err != nil {
		return model.Stack{}, fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return model.Stack{}, fmt.Errorf("project root %s is not a directory", root)
	}
	names, err := topLevelFiles(root)
	if err != nil {
		return model.Stack{}, fmt.Errorf("read project root: %w", err)
	}
	counts := census(root)

	// 1. .NET — solution or project file
	if build := matchSuffixes(names, ".sln", ".csproj", ".fsproj", ".vbproj"); len(build) > 0 {
		return model.Stack{
			Language:   "dotnet",
			Label:      ".NET",
			Frameworks: dotnetFrameworks(root, build),
			BuildFiles: build,
			FilesByExt: counts,
		}, nil
	}

	// 2. Node.js — package.json, with framework probe on its deps
	if build := matchNames(names, "package.json"); len(build) > 0 {
		return model.Stack{
			Language:   "node",
			Label:      "Node.js",
			Frameworks: nodeFrameworks(root),
			BuildFiles: build,
			FilesByExt: counts,
		}, nil
	}

	// 3. Python — any of the packaging entry points
	if build := matchNames(names, "requirements.txt", "setup.py", "pyproject.toml", "Pipfile"); len(build) > 0 {
		return model.Stack{
			Language:   "python",
			Label:      "Python",
			Frameworks: pythonFrameworks(root),
			BuildFiles: build,
			FilesByExt: counts,
		}, nil
	}

	// 4. Java — Maven or Gradle
	if build := matchNames(names, "pom.xml", "build.gradle", "build.gradle.kts"); len(build) > 0 {
		return model.Stack{Language: "java", Label: "Java", BuildFiles: build, FilesByExt: counts}, nil
	}

	// 5. Go
	if build := matchNames(names, "go.mod", "Gopkg.toml"); len(build) > 0 {
		return model.Stack{Language: "go", Label: "Go", BuildFiles: build, FilesByExt: counts}, nil
	}

	// 6. Rust
	if build := matchNames(names, "Cargo.toml"); len(build) > 0 {
		return model.Stack{Language: "rust", Label: "Rust", BuildFiles: build, FilesByExt: counts}, nil
	}

	// 7. No build file: let the extension census decide
	if lang, label := censusLanguage(counts); lang != "" {
		return model.Stack{Language: lang, Label: label, FilesByExt: counts}, nil
	}

	return model.Stack{FilesByExt: counts}, ErrUnknown
}

// topLevelFiles returns the names of regular files directly under root, in
// directory order (sorted by name).
func topLevelFiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func matchSuffixes(names []string, suffixes ...string) []string {
	var out []string
	for _, n := range names {
		for _, s := range suffixes {
			if strings.HasSuffix(n, s) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

func matchNames(names []string, wanted ...string) []string {
	var out []string
	for _, w := range wanted {
		for _, n := range names {
			if n == w {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// dotnetFrameworks probes project files for the web SDK and well-known
// package references.
func dotnetFrameworks(root string, buildFiles []string) []string {
	var fw []string
	seen := map[string]struct{}{}
	add := func(label string) {
		if _, dup := seen[label]; !dup {
			seen[label] = struct{}{}
			fw = append(fw, label)
		}
	}
	for _, name := range buildFiles {
		if !strings.HasSuffix(name, "proj") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		content := string(data)
		if strings.Contains(content, "Microsoft.NET.Sdk.Web") || strings.Contains(content, "Microsoft.AspNetCore") {
			add("ASP.NET Core")
		}
		if strings.Contains(content, "Microsoft.EntityFrameworkCore") {
			add("Entity Framework Core")
		}
	}
	return fw
}

// nodeFrameworks returns well-known frameworks found among package.json
// dependencies and devDependencies, in a fixed probe order.
func nodeFrameworks(root string) []string {
	deps := packageJSONDeps(root)
	if len(deps) == 0 {
		return nil
	}
	var fw []string
	for _, probe := range []struct{ dep, label string }{
		{"next", "Next.js"},
		{"express", "Express"},
		{"fastify", "Fastify"},
		{"react", "React"},
	} {
		if _, ok := deps[probe.dep]; ok {
			fw = append(fw, probe.label)
		}
	}
	return fw
}

// packageJSONDeps reads package.json from root and returns the merged map
// of dependencies and devDependencies. Returns nil if the file is absent or
// unparseable.
func packageJSONDeps(root string) map[string]string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	merged := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	maps.Copy(merged, pkg.Dependencies)
	maps.Copy(merged, pkg.DevDependencies)
	return merged
}

// pythonFrameworks scans requirements.txt for well-known frameworks.
func pythonFrameworks(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "requirements.txt"))
	if err != nil {
		return nil
	}
	present := map[string]struct{}{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		present[pipPackageName(line)] = struct{}{}
	}
	var fw []string
	for _, probe := range []struct{ pkg, label string }{
		{"fastapi", "FastAPI"},
		{"django", "Django"},
		{"flask", "Flask"},
	} {
		if _, ok := present[probe.pkg]; ok {
			fw = append(fw, probe.label)
		}
	}
	return fw
}

// pipPackageName returns the lowercased package name from a pip
// requirements line, stripping version specifiers and extras.
// For example, "FastAPI>=0.100" → "fastapi", "flask[async]==3.0" → "flask".
func pipPackageName(line string) string {
	if idx := strings.IndexByte(line, '['); idx != -1 {
		line = line[:idx]
	}
	for _, sep := range []string{"==", ">=", "<=", "~=", "!=", "<", ">"} {
		if idx := strings.Index(line, sep); idx != -1 {
			line = line[:idx]
		}
	}
	return strings.ToLower(strings.TrimSpace(line))
}

// census counts regular files by lowercased extension across the whole
// tree, skipping dependency and VCS directories. Best-effort: unreadable
// subtrees are simply not counted.
func census(root string) map[string]int {
	counts := make(map[string]int)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil {
			return nil
		}
		if d.IsDir() {
			if _, skip := censusSkipDirs[d.Name()]; skip && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ext := strings.ToLower(filepath.Ext(d.Name())); ext != "" {
			counts[ext]++
		}
		return nil
	})
	return counts
}

// censusLanguage maps the extension census onto a language, checked in the
// same priority order as the build-file signals.
func censusLanguage(counts map[string]int) (lang, label string) {
	checks := []struct {
		lang, label string
		exts        []string
	}{
		{"dotnet", ".NET", []string{".cs", ".vb", ".fs"}},
		{"node", "Node.js", []string{".js", ".ts", ".jsx", ".tsx"}},
		{"python", "Python", []string{".py"}},
		{"java", "Java", []string{".java"}},
		{"go", "Go", []string{".go"}},
		{"rust", "Rust", []string{".rs"}},
	}
	for _, c := range checks {
		for _, ext := range c.exts {
			if counts[ext] > 0 {
				return c.lang, c.label
			}
		}
	}
	return "", ""
}
