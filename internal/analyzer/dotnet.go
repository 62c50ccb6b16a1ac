package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/KumVivek/copilot-instruction-agent/internal/engine"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

const (
	dotnetAnalyzerName   = "dotnet-architecture"
	analyzerEvidenceCap  = 10
	maxAnalyzerFileBytes = 2 * 1024 * 1024
)

var (
	controllerClassRe = regexp.MustCompile(`class\s+\w+Controller\s*[:{]`)
	dbContextFieldRe  = regexp.MustCompile(`\b\w*DbContext\s+\w+`)
	newClassRe        = regexp.MustCompile(`new\s+([A-Z][a-zA-Z0-9]*)\s*\(`)

	// Heuristics for business logic living in a controller body.
	businessLogicRes = []*regexp.Regexp{
		regexp.MustCompile(`if\s*\([^)]{50,}\)`),
		regexp.MustCompile(`(?s)foreach\s*\([^)]+\)\s*\{[^}]{200,}\}`),
		regexp.MustCompile(`\.(Sum|Average|Count|Where|Select|GroupBy)\(`),
	}

	staticAccessRes = []*regexp.Regexp{
		regexp.MustCompile(`ServiceLocator\.`),
		regexp.MustCompile(`DependencyResolver\.`),
		regexp.MustCompile(`HttpContext\.Current\.`),
	}
)

// Constructor calls that are fine outside the DI container: value types,
// collections and framework plumbing.
var instantiationExceptions = map[string]struct{}{
	"List": {}, "Dictionary": {}, "HashSet": {}, "Array": {}, "String": {},
	"StringBuilder": {}, "DateTime": {}, "Guid": {}, "Exception": {},
}

var dependencyNameHints = []string{"service", "repository", "manager", "handler", "factory"}

// DotnetArchitecture flags layering violations in ASP.NET-style codebases:
// controllers reaching into the data layer, business logic in controllers,
// hand-rolled dependency construction and static service location.
type DotnetArchitecture struct {
	log *zap.Logger
}

func NewDotnetArchitecture(logger *zap.Logger) *DotnetArchitecture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DotnetArchitecture{log: logger}
}

func (a *DotnetArchitecture) Name() string { return dotnetAnalyzerName }

type sourceFile struct {
	rel     string
	content string
}

func (a *DotnetArchitecture) Scan(ctx context.Context, root string) ([]model.Finding, error) {
	paths, _, err := engine.ListFiles(root, []string{".cs"}, nil)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		a.log.Debug("no C# files found", zap.String("root", root))
		return nil, nil
	}

	files := make([]sourceFile, 0, len(paths))
	for _, rel := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		raw, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if readErr != nil {
			a.log.Debug("read failed", zap.String("path", rel), zap.Error(readErr))
			continue
		}
		if len(raw) > maxAnalyzerFileBytes {
			a.log.Debug("file too large", zap.String("path", rel), zap.Int("bytes", len(raw)))
			continue
		}
		files = append(files, sourceFile{rel: rel, content: string(raw)})
	}

	findings := make([]model.Finding, 0, 4)
	if f, ok := checkControllerDbContext(files); ok {
		findings = append(findings, f)
	}
	if f, ok := checkBusinessLogicInControllers(files); ok {
		findings = append(findings, f)
	}
	if f, ok := checkDirectInstantiation(files); ok {
		findings = append(findings, f)
	}
	if f, ok := checkStaticDependencies(files); ok {
		findings = append(findings, f)
	}
	return findings, nil
}

func checkControllerDbContext(files []sourceFile) (model.Finding, bool) {
	var evidence []model.Location
	for _, f := range files {
		if !isControllerFile(f.rel) || !controllerClassRe.MatchString(f.content) {
			continue
		}
		if dbContextFieldRe.MatchString(f.content) {
			evidence = append(evidence, model.Location{Path: f.rel})
		}
	}
	if len(evidence) == 0 {
		return model.Finding{}, false
	}
	return model.Finding{
		PatternID:   "ARCH-001",
		Name:        "Controller accessing DbContext directly",
		Severity:    model.SeverityHigh,
		Category:    "Architecture",
		Kind:        model.KindAntiPattern,
		Occurrences: len(evidence),
		Evidence:    capEvidence(evidence),
		Constraints: []string{
			"Controllers must not access DbContext directly",
			"Use repository pattern or service layer for data access",
			"Inject services through constructor, not DbContext",
		},
	}, true
}

func checkBusinessLogicInControllers(files []sourceFile) (model.Finding, bool) {
	var evidence []model.Location
	for _, f := range files {
		if !isControllerFile(f.rel) || !controllerClassRe.MatchString(f.content) {
			continue
		}
		for _, re := range businessLogicRes {
			if re.MatchString(f.content) {
				evidence = append(evidence, model.Location{Path: f.rel})
				break
			}
		}
	}
	if len(evidence) == 0 {
		return model.Finding{}, false
	}
	return model.Finding{
		PatternID:   "ARCH-002",
		Name:        "Business logic in controllers",
		Severity:    model.SeverityMedium,
		Category:    "Architecture",
		Kind:        model.KindAntiPattern,
		Occurrences: len(evidence),
		Evidence:    capEvidence(evidence),
		Constraints: []string{
			"Move business logic from controllers to service classes",
			"Keep controllers thin - only handle HTTP concerns",
			"Use service layer for data processing and business rules",
		},
	}, true
}

func checkDirectInstantiation(files []sourceFile) (model.Finding, bool) {
	var evidence []model.Location
	for _, f := range files {
		for _, m := range newClassRe.FindAllStringSubmatchIndex(f.content, -1) {
			className := f.content[m[2]:m[3]]
			if _, exempt := instantiationExceptions[className]; exempt {
				continue
			}
			if !looksLikeDependency(className) {
				continue
			}
			evidence = append(evidence, model.Location{
				Path: f.rel,
				Line: lineOf(f.content, m[0]),
			})
		}
	}
	if len(evidence) == 0 {
		return model.Finding{}, false
	}
	return model.Finding{
		PatternID:   "ARCH-003",
		Name:        "Direct instantiation instead of dependency injection",
		Severity:    model.SeverityMedium,
		Category:    "Architecture",
		Kind:        model.KindAntiPattern,
		Occurrences: len(evidence),
		Evidence:    capEvidence(evidence),
		Constraints: []string{
			"Use dependency injection instead of 'new' keyword for services",
			"Register services in DI container and inject via constructor",
			"Avoid creating service instances directly in classes",
		},
	}, true
}

func checkStaticDependencies(files []sourceFile) (model.Finding, bool) {
	var evidence []model.Location
	for _, f := range files {
		for _, re := range staticAccessRes {
			if re.MatchString(f.content) {
				evidence = append(evidence, model.Location{Path: f.rel})
				break
			}
		}
	}
	if len(evidence) == 0 {
		return model.Finding{}, false
	}
	return model.Finding{
		PatternID:   "ARCH-004",
		Name:        "Static service location anti-pattern",
		Severity:    model.SeverityHigh,
		Category:    "Architecture",
		Kind:        model.KindAntiPattern,
		Occurrences: len(evidence),
		Evidence:    capEvidence(evidence),
		Constraints: []string{
			"Avoid ServiceLocator and static dependency resolution",
			"Use constructor injection for all dependencies",
			"Do not use HttpContext.Current or similar static accessors",
		},
	}, true
}

func isControllerFile(rel string) bool {
	return strings.Contains(strings.ToLower(rel), "controller")
}

func looksLikeDependency(className string) bool {
	lower := strings.ToLower(className)
	for _, hint := range dependencyNameHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func lineOf(content string, offset int) int {
	if offset < 0 {
		return 1
	}
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}

func capEvidence(in []model.Location) []model.Location {
	if len(in) <= analyzerEvidenceCap {
		return in
	}
	return in[:analyzerEvidenceCap]
}
