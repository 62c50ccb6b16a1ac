package engine

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/KumVivek/copilot-instruction-agent/internal/catalog"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// --- Fail-Safe Matching Tests ---
// A scan must survive hostile file content and hostile patterns without
// hanging or corrupting its output.

func TestMatchOffsets_BudgetExhaustionFailsSafe(t *testing.T) {
	// A budget that cannot possibly be met. The unit must degrade to a
	// non-match instead of blocking the worker.
	content := strings.Repeat("a", 16<<20)
	re := regexp.MustCompile("z")

	offsets, ok := matchOffsets(re, content, time.Nanosecond)
	if ok {
		t.Fatal("expected the budget to expire before matching finished")
	}
	if offsets != nil {
		t.Fatalf("expected nil offsets on budget exhaustion, got %d", len(offsets))
	}
}

func TestMatchOffsets_CompletesWithinDefaultBudget(t *testing.T) {
	content := strings.Repeat("ab", 1<<20)
	re := regexp.MustCompile("z")

	offsets, ok := matchOffsets(re, content, 0)
	if !ok {
		t.Fatal("expected matching to finish within the default budget")
	}
	if len(offsets) != 0 {
		t.Fatalf("expected no matches, got %d", len(offsets))
	}
}

// --- Hostile File Content Tests ---

func TestScan_BinaryFileWithMatchingExtensionIsSkippedSilently(t *testing.T) {
	root := t.TempDir()
	binary := append([]byte("class FooController"), 0x00, 0x01, 0x02)
	if err := os.WriteFile(filepath.Join(root, "Sneaky.cs"), binary, 0o644); err != nil {
		t.Fatal(err)
	}

	cat := compileCatalog(t, catalog.Catalog{
		Language: "dotnet",
		Patterns: []catalog.Pattern{{
			ID:       "ARCH-001",
			Type:     model.KindAntiPattern,
			Severity: model.SeverityHigh,
			Category: "Architecture",
			Regex:    `class\s+\w+Controller`,
		}},
	})

	res, err := Scan(context.Background(), root, cat, Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("binary content must not produce events, got %+v", res.Events)
	}
	if res.FilesScanned != 0 || res.FilesSkipped != 1 {
		t.Errorf("expected scanned=0 skipped=1, got scanned=%d skipped=%d", res.FilesScanned, res.FilesSkipped)
	}
	for _, w := range res.Warnings {
		t.Errorf("binary skip should be silent, got warning: %+v", w)
	}
}

func TestScan_InvalidUTF8IsSkippedWithWarning(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Broken.cs"), []byte{0xff, 0xfe, 'c', 'l', 'a', 's', 's'}, 0o644); err != nil {
		t.Fatal(err)
	}

	cat := compileCatalog(t, catalog.Catalog{
		Language: "dotnet",
		Patterns: []catalog.Pattern{{ID: "X-1", Type: model.KindAntiPattern, Severity: model.SeverityLow, Category: "Misc", Regex: "class"}},
	})

	res, err := Scan(context.Background(), root, cat, Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("undecodable content must not produce events, got %+v", res.Events)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Stage == model.WarnFile && strings.Contains(w.Message, "not valid UTF-8") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a file warning for invalid UTF-8, got %+v", res.Warnings)
	}
}

func TestScan_OversizedFileIsSkippedWithWarning(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Huge.cs"), strings.Repeat("x", 4096))
	mustWrite(t, filepath.Join(root, "Small.cs"), "class Small {}\n")

	cat := compileCatalog(t, catalog.Catalog{
		Language: "dotnet",
		Patterns: []catalog.Pattern{{ID: "X-1", Type: model.KindAntiPattern, Severity: model.SeverityLow, Category: "Misc", Regex: "class"}},
	})

	res, err := Scan(context.Background(), root, cat, Options{MaxFileBytes: 1024})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.FilesScanned != 1 || res.FilesSkipped != 1 {
		t.Errorf("expected scanned=1 skipped=1, got scanned=%d skipped=%d", res.FilesScanned, res.FilesSkipped)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "exceeds limit") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a size warning, got %+v", res.Warnings)
	}
}

func TestScan_UnreadableFileWarnsAndContinues(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are unreliable on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores permission bits")
	}

	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Locked.cs"), "class Locked {}\n")
	mustWrite(t, filepath.Join(root, "Open.cs"), "class Open {}\n")
	if err := os.Chmod(filepath.Join(root, "Locked.cs"), 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "Locked.cs"), 0o644) })

	cat := compileCatalog(t, catalog.Catalog{
		Language: "dotnet",
		Patterns: []catalog.Pattern{{ID: "X-1", Type: model.KindAntiPattern, Severity: model.SeverityLow, Category: "Misc", Regex: "class"}},
	})

	res, err := Scan(context.Background(), root, cat, Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.FilesScanned != 1 {
		t.Errorf("expected the readable file to be scanned, got scanned=%d", res.FilesScanned)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Stage == model.WarnFile && strings.Contains(w.Message, "Locked.cs") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a read warning for Locked.cs, got %+v", res.Warnings)
	}
}

// --- Cancellation Tests ---

func TestScan_CancelledContextDropsUnfinishedFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"A.cs", "B.cs", "C.cs"} {
		mustWrite(t, filepath.Join(root, name), "class X { var c = new HttpClient(); }\n")
	}

	cat := compileCatalog(t, catalog.Catalog{
		Language: "dotnet",
		Patterns: []catalog.Pattern{
			{ID: "DN-006", Type: model.KindAntiPattern, Severity: model.SeverityMedium, Category: "Performance", Regex: `new\s+HttpClient\s*\(`},
			{ID: "DN-101", Type: model.KindRequiredPattern, Severity: model.SeverityLow, Category: "Reliability", Regex: `ILogger<`},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Scan(ctx, root, cat, Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Events) != 0 || res.FilesScanned != 0 {
		t.Errorf("pre-cancelled scan must drop all files, got events=%d scanned=%d", len(res.Events), res.FilesScanned)
	}
	if res.FilesSkipped != 3 {
		t.Errorf("dropped files count as skipped, got %d", res.FilesSkipped)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "cancelled") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a cancellation warning, got %+v", res.Warnings)
	}

	// With zero scanned units the required pattern has no scope to be
	// absent from, so cancellation cannot fabricate absence findings.
	if findings := Group(res, cat, 0); len(findings) != 0 {
		t.Errorf("expected no findings from a fully-dropped scan, got %+v", findings)
	}
}

// --- Symlink Tests ---

func TestScan_SymlinkedFilesAreNotFollowed(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	mustWrite(t, filepath.Join(outside, "Secret.cs"), "class FooController { DbContext db; }\n")
	if err := os.Symlink(filepath.Join(outside, "Secret.cs"), filepath.Join(root, "Link.cs")); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	mustWrite(t, filepath.Join(root, "Real.cs"), "class Plain {}\n")

	cat := compileCatalog(t, catalog.Catalog{
		Language: "dotnet",
		Patterns: []catalog.Pattern{{
			ID:       "ARCH-001",
			Type:     model.KindAntiPattern,
			Severity: model.SeverityHigh,
			Category: "Architecture",
			Regex:    `class\s+\w+Controller[\s\S]*DbContext`,
		}},
	})

	res, err := Scan(context.Background(), root, cat, Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("symlinked content must not be scanned, got %+v", res.Events)
	}
	if res.FilesScanned != 1 {
		t.Errorf("expected only Real.cs to be scanned, got %d", res.FilesScanned)
	}
}
