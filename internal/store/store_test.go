package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "library.json"))
	doc := []byte(`{"categories":[{"name":"favourites"}]}`)

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != string(doc) {
		t.Errorf("Load = %s, want saved document", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := s.Load(); !os.IsNotExist(err) {
		t.Errorf("Load err = %v, want not-exist", err)
	}
}

func TestSaveRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s := New(path)
	if err := s.Save([]byte("{broken")); err == nil {
		t.Fatal("Save accepted invalid JSON")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid save must not create the file")
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "nested", "deep", "state.json"))
	if err := s.Save([]byte(`{}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(filepath.Join(dir, "doc.json"))
	if err := s.Save([]byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestConcurrentSaves(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "doc.json"))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Save([]byte(`{"v":1}`)); err != nil {
				t.Errorf("Save failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got, err := s.Load(); err != nil || string(got) != `{"v":1}` {
		t.Errorf("Load = %s, %v after concurrent saves", got, err)
	}
}
