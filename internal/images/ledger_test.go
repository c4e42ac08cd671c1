package images

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used_images.json")

	l := OpenLedger(nil, path)
	if l.Len() != 0 {
		t.Fatalf("fresh ledger Len = %d, want 0", l.Len())
	}

	if err := l.Record("a.jpg"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record("b.jpg"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	reloaded := OpenLedger(nil, path)
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded Len = %d, want 2", reloaded.Len())
	}
	exclude := reloaded.Exclude()
	if _, ok := exclude["a.jpg"]; !ok {
		t.Error("a.jpg missing from exclusion set")
	}
	if _, ok := exclude["b.jpg"]; !ok {
		t.Error("b.jpg missing from exclusion set")
	}
}

func TestLedgerDropsOldestPastCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used_images.json")
	l := OpenLedger(nil, path)

	for i := 0; i < ledgerCap+10; i++ {
		if err := l.Record(fmt.Sprintf("img-%03d.jpg", i)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if l.Len() != ledgerCap {
		t.Fatalf("Len = %d, want %d", l.Len(), ledgerCap)
	}
	exclude := l.Exclude()
	if _, ok := exclude["img-000.jpg"]; ok {
		t.Error("oldest entry should have been dropped")
	}
	if _, ok := exclude[fmt.Sprintf("img-%03d.jpg", ledgerCap+9)]; !ok {
		t.Error("newest entry missing")
	}
}

func TestLedgerSurvivesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used_images.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	l := OpenLedger(nil, path)
	if l.Len() != 0 {
		t.Errorf("corrupt ledger should start empty, Len = %d", l.Len())
	}
	if err := l.Record("a.jpg"); err != nil {
		t.Errorf("Record after corrupt load: %v", err)
	}
}
