package hotpath

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), slog.New(slog.DiscardHandler))
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := testStore(t)
	rec := s.Load()
	if len(rec) != 0 {
		t.Fatalf("missing file should load as empty record, got %v", rec)
	}
}

// TestStore_LoadCorruptFile: a malformed record degrades to empty, it never
// errors outward.
func TestStore_LoadCorruptFile(t *testing.T) {
	s := testStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := s.Load()
	if len(rec) != 0 {
		t.Fatalf("corrupt file should load as empty record, got %v", rec)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	if err := s.Save(Record{"small": 4000, "med": 128000}); err != nil {
		t.Fatal(err)
	}

	rec := s.Load()
	if v, ok := rec.Int("small"); !ok || v != 4000 {
		t.Errorf("small = %v, %v", v, ok)
	}
	if v, ok := rec.Int("med"); !ok || v != 128000 {
		t.Errorf("med = %v, %v", v, ok)
	}
}

// TestStore_UnknownKeysSurviveMerge: the record is forward-compatible; keys
// this version does not understand pass through a load-update-save cycle.
func TestStore_UnknownKeysSurviveMerge(t *testing.T) {
	s := testStore(t)
	if err := s.Save(Record{
		"small":    1000,
		"note":     "written by a newer version",
		"profiles": map[string]any{"avx512": true},
	}); err != nil {
		t.Fatal(err)
	}

	rec := s.Load()
	rec["small"] = 2000
	rec["med"] = 90000
	if err := s.Save(rec); err != nil {
		t.Fatal(err)
	}

	got := s.Load()
	if got["note"] != "written by a newer version" {
		t.Errorf("unknown string key lost: %v", got["note"])
	}
	if _, ok := got["profiles"].(map[string]any); !ok {
		t.Errorf("unknown object key lost: %v", got["profiles"])
	}
	if v, _ := got.Int("small"); v != 2000 {
		t.Errorf("small = %d, want 2000", v)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save(Record{"small": i}); err != nil {
			t.Fatal(err)
		}
	}

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".hotpath-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestRecord_Int(t *testing.T) {
	rec := Record{
		"float":      float64(42),
		"fractional": 41.5,
		"negative":   float64(-1),
		"string":     "42",
		"int":        7,
	}

	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"float", 42, true},
		{"int", 7, true},
		{"fractional", 0, false},
		{"negative", 0, false},
		{"string", 0, false},
		{"absent", 0, false},
	}
	for _, tt := range tests {
		if got, ok := rec.Int(tt.key); got != tt.want || ok != tt.ok {
			t.Errorf("Int(%q) = (%d, %v), want (%d, %v)", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveCacheDir(t *testing.T) {
	if got := resolveCacheDir("/var/cache//hotpath/."); got != "/var/cache/hotpath" {
		t.Errorf("path not cleaned: %q", got)
	}

	t.Setenv("HOTPATH_CACHE", "/tmp/hotpath-test-cache")
	if got := resolveCacheDir(""); got != "/tmp/hotpath-test-cache" {
		t.Errorf("env override not applied: %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := resolveCacheDir("~/calib"); got != filepath.Join(home, "calib") {
		t.Errorf("tilde not expanded: %q", got)
	}
}
