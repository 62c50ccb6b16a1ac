package safefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "out", "reports")

	created, err := EnsureDir(target, 0o700)
	if err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if created != target {
		t.Fatalf("unexpected created path: got %s want %s", created, target)
	}

	// Idempotent for an existing directory.
	if _, err := EnsureDir(target, 0o700); err != nil {
		t.Fatalf("EnsureDir on existing dir failed: %v", err)
	}
}

func TestEnsureDir_RejectsSymlink(t *testing.T) {
	root := t.TempDir()
	real := filepath.Join(root, "real")
	if err := os.MkdirAll(real, 0o700); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	if _, err := EnsureDir(link, 0o700); err == nil {
		t.Fatal("expected symlinked directory to be rejected")
	}
}

func TestWriteFileAtomic_RejectsSymlinkTarget(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target.txt")
	link := filepath.Join(root, "link.txt")
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	err := WriteFileAtomic(link, []byte("new"), 0o600)
	if err == nil {
		t.Fatal("expected symlink target to be rejected")
	}
	if !strings.Contains(err.Error(), "symlinked file target") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteFileAtomic_OverwritesRegularFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "scan-report.json")
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(target, []byte("new"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("unexpected content: %s", string(got))
	}
}

func TestWriteFileAtomic_LeavesNoTempFileBehind(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "badge.svg")

	if err := WriteFileAtomic(target, []byte("<svg/>"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "badge.svg" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only badge.svg, got %v", names)
	}
}
