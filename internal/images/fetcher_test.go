package images

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestImage(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("fake image bytes"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFetcherScansLibrary(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "a.jpg")
	writeTestImage(t, dir, "b.PNG") // extension match is case-insensitive
	writeTestImage(t, dir, "sub/c.webp")
	writeTestImage(t, dir, "notes.txt") // not an image

	f, err := NewFetcher(nil, dir, nil)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	all := f.All()
	if len(all) != 3 {
		t.Fatalf("found %d images, want 3: %+v", len(all), all)
	}
	for _, img := range all {
		if img.Name == "notes.txt" {
			t.Error("non-image file included in scan")
		}
		if img.RelPath == "" || img.FullPath == "" {
			t.Errorf("image missing paths: %+v", img)
		}
	}
}

func TestFetcherCreatesMissingFolder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does", "not", "exist")
	f, err := NewFetcher(nil, root, nil)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("folder not created: %v", err)
	}
	if _, ok := f.RandomUnused(nil); ok {
		t.Error("empty library should report no image")
	}
}

func TestRandomUnusedRespectsExclusion(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "a.jpg")
	writeTestImage(t, dir, "b.jpg")

	f, err := NewFetcher(nil, dir, nil)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	exclude := map[string]struct{}{"a.jpg": {}}
	for i := 0; i < 20; i++ {
		img, ok := f.RandomUnused(exclude)
		if !ok {
			t.Fatal("expected an image")
		}
		if img.RelPath == "a.jpg" {
			t.Fatal("excluded image was selected")
		}
	}
}

func TestRandomUnusedRepeatsWhenExhausted(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "only.jpg")

	f, err := NewFetcher(nil, dir, nil)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	img, ok := f.RandomUnused(map[string]struct{}{"only.jpg": {}})
	if !ok {
		t.Fatal("exhausted library should repeat, not fail")
	}
	if img.RelPath != "only.jpg" {
		t.Errorf("got %q, want only.jpg", img.RelPath)
	}
}
