package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"asset-manager/internal/sandbox"
)

func newTestScanner(t *testing.T) (*Scanner, string) {
	t.Helper()
	root := t.TempDir()
	resolver, err := sandbox.NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	return NewScanner(resolver), resolver.Root()
}

func writeAsset(t *testing.T, root, subfolder, name string, mtime time.Time) {
	t.Helper()
	dir := filepath.Join(root, subfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestScanOrdersAssetsNewestFirst(t *testing.T) {
	t.Parallel()
	scanner, root := newTestScanner(t)

	base := time.Now().Add(-time.Hour)
	writeAsset(t, root, "", "old.png", base)
	writeAsset(t, root, "", "mid.png", base.Add(time.Minute))
	writeAsset(t, root, "", "new.png", base.Add(2*time.Minute))

	groups, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	want := []string{"new.png", "mid.png", "old.png"}
	if len(groups[0].Assets) != len(want) {
		t.Fatalf("got %d assets, want %d", len(groups[0].Assets), len(want))
	}
	for i, name := range want {
		if groups[0].Assets[i].Filename != name {
			t.Errorf("asset[%d] = %q, want %q", i, groups[0].Assets[i].Filename, name)
		}
	}
}

func TestScanRootGroupAlwaysFirst(t *testing.T) {
	t.Parallel()
	scanner, root := newTestScanner(t)

	now := time.Now()
	// "aardvark" sorts before any printable root label; the root group
	// must still lead.
	writeAsset(t, root, "aardvark", "a.png", now)
	writeAsset(t, root, "zebra", "z.png", now)
	writeAsset(t, root, "", "r.png", now)

	groups, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{RootLabel, "aardvark", "zebra"}
	if len(groups) != len(want) {
		t.Fatalf("got %d groups, want %d", len(groups), len(want))
	}
	for i, label := range want {
		if groups[i].Folder != label {
			t.Errorf("group[%d] = %q, want %q", i, groups[i].Folder, label)
		}
	}
}

func TestScanDropsEmptyAndNonMatchingDirs(t *testing.T) {
	t.Parallel()
	scanner, root := newTestScanner(t)

	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes", "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeAsset(t, root, "keep", "k.webp", time.Now())

	groups, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Folder != "keep" {
		t.Fatalf("groups = %+v, want single 'keep' group", groups)
	}
}

func TestScanNestedSubfolderLabels(t *testing.T) {
	t.Parallel()
	scanner, root := newTestScanner(t)

	writeAsset(t, root, filepath.Join("a", "b"), "n.jpg", time.Now())

	groups, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].Folder != "a/b" {
		t.Errorf("nested label = %q, want %q", groups[0].Folder, "a/b")
	}
	if groups[0].Assets[0].Subfolder != "a/b" {
		t.Errorf("asset subfolder = %q, want %q", groups[0].Assets[0].Subfolder, "a/b")
	}
}

func TestScanMissingRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	resolver, err := sandbox.NewResolver(filepath.Join(root, "missing"))
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	if _, err := NewScanner(resolver).Scan(); err == nil {
		t.Fatal("Scan of missing root should fail")
	}
}

func TestScanAssetURLs(t *testing.T) {
	t.Parallel()
	scanner, root := newTestScanner(t)

	writeAsset(t, root, "sub", "p.png", time.Now())

	groups, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	url := groups[0].Assets[0].URL
	for _, want := range []string{"/view?", "filename=p.png", "subfolder=sub", "type=output"} {
		if !strings.Contains(url, want) {
			t.Errorf("asset URL %q missing %q", url, want)
		}
	}
}
