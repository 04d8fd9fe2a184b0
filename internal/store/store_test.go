package store_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/derickschaefer/tally/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
// It is closed and deleted automatically when the test ends.
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ─── Open / Path ──────────────────────────────────────────────────────────────

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c", "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open with nested path: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %q, got %q", path, s.Path())
	}
}

// ─── KV contract (shared by both implementations) ─────────────────────────────

func kvImplementations(t *testing.T) map[string]store.KV {
	return map[string]store.KV{
		"bbolt":  testDB(t),
		"memory": store.NewMemory(),
	}
}

func TestKVLoadMissing(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := kv.Load("nothing")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if ok || v != nil {
				t.Errorf("missing key: expected (nil, false), got (%q, %v)", v, ok)
			}
		})
	}
}

func TestKVSaveLoad(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := kv.Save("pinned", []byte(`[{"id":"a"}]`)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			v, ok, err := kv.Load("pinned")
			if err != nil || !ok {
				t.Fatalf("Load: ok=%v err=%v", ok, err)
			}
			if string(v) != `[{"id":"a"}]` {
				t.Errorf("Load: got %q", v)
			}

			// Overwrite replaces the whole value.
			if err := kv.Save("pinned", []byte(`[]`)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			v, _, _ = kv.Load("pinned")
			if string(v) != `[]` {
				t.Errorf("after overwrite: got %q", v)
			}
		})
	}
}

func TestKVReturnsCopies(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			in := []byte("abc")
			_ = kv.Save("k", in)
			in[0] = 'X'

			v, _, _ := kv.Load("k")
			if string(v) != "abc" {
				t.Errorf("stored value aliased caller buffer: %q", v)
			}
			v[1] = 'Y'
			again, _, _ := kv.Load("k")
			if string(again) != "abc" {
				t.Errorf("Load result aliased stored value: %q", again)
			}
		})
	}
}

// ─── Persistence across reopen ────────────────────────────────────────────────

func TestSaveSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	s1, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	payload := []byte(`[{"id":"x","title":"Revenue"}]`)
	if err := s1.Save("pinned_charts", payload); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s1.Close()

	s2, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	v, ok, err := s2.Load("pinned_charts")
	if err != nil || !ok {
		t.Fatalf("Load after reopen: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(v, payload) {
		t.Errorf("after reopen: expected %q, got %q", payload, v)
	}
}

// ─── Stats / ClearBucket ──────────────────────────────────────────────────────

func TestStatsCountsKV(t *testing.T) {
	s := testDB(t)
	_ = s.Save("a", []byte("12345"))
	_ = s.Save("b", []byte("1"))

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Name != "kv" {
		t.Fatalf("Stats: expected one kv bucket, got %+v", stats)
	}
	if stats[0].Count != 2 {
		t.Errorf("Count: expected 2, got %d", stats[0].Count)
	}
	if stats[0].Bytes != int64(len("a")+5+len("b")+1) {
		t.Errorf("Bytes: got %d", stats[0].Bytes)
	}
}

func TestClearBucket(t *testing.T) {
	s := testDB(t)
	_ = s.Save("a", []byte("1"))
	if err := s.ClearBucket("kv"); err != nil {
		t.Fatalf("ClearBucket: %v", err)
	}
	if _, ok, _ := s.Load("a"); ok {
		t.Error("key should be gone after ClearBucket")
	}
	// Bucket must be usable again.
	if err := s.Save("b", []byte("2")); err != nil {
		t.Errorf("Save after clear: %v", err)
	}
}

func TestClearUnknownBucket(t *testing.T) {
	s := testDB(t)
	if err := s.ClearBucket("nope"); err == nil {
		t.Error("clearing an unknown bucket should fail")
	}
}
