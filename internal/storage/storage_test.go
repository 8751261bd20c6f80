package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "wheel.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestStore_LoadSaveDelete(t *testing.T) {
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Load(ctx, PrizesKey); err != nil || ok {
				t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
			}

			if err := s.Save(ctx, PrizesKey, `[1]`); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if err := s.Save(ctx, PrizesKey, `[1,2]`); err != nil {
				t.Fatalf("Second save failed: %v", err)
			}
			if err := s.Save(ctx, WinnersKey, `[]`); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			v, ok, err := s.Load(ctx, PrizesKey)
			if err != nil || !ok {
				t.Fatalf("Expected stored key, got ok=%v err=%v", ok, err)
			}
			if v != `[1,2]` {
				t.Errorf("Expected last saved value, got %q", v)
			}

			if err := s.Delete(ctx, PrizesKey, WinnersKey); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			for _, k := range []string{PrizesKey, WinnersKey} {
				if _, ok, _ := s.Load(ctx, k); ok {
					t.Errorf("Expected %s to be deleted", k)
				}
			}
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save(context.Background(), "", "x"); err != ErrEmptyKey {
				t.Errorf("Expected ErrEmptyKey, got %v", err)
			}
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type row struct {
		Name string `json:"name"`
	}

	var got []row
	ok, err := LoadJSON(ctx, s, WinnersKey, &got)
	if err != nil || ok {
		t.Fatalf("Expected missing snapshot, got ok=%v err=%v", ok, err)
	}

	if err := SaveJSON(ctx, s, WinnersKey, []row{{"a"}, {"b"}}); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	ok, err = LoadJSON(ctx, s, WinnersKey, &got)
	if err != nil || !ok {
		t.Fatalf("LoadJSON failed: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Errorf("Unexpected round trip result: %+v", got)
	}

	s.Save(ctx, PrizesKey, "{not json")
	if _, err := LoadJSON(ctx, s, PrizesKey, &got); err == nil {
		t.Error("Expected decode error for corrupt snapshot")
	}
}
