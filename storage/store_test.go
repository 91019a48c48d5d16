package storage

import (
	"testing"

	"seqassist/vault"
)

// both implementations satisfy the vault's backing-store port
var (
	_ vault.Store = (*SQLiteStore)(nil)
	_ vault.Store = (*MemoryStore)(nil)
)

func testStore(t *testing.T, store vault.Store) {
	t.Helper()

	if _, ok, err := store.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = (ok=%v, err=%v), want absent", ok, err)
	}

	if err := store.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := store.Get("k")
	if err != nil || !ok || string(value) != "v1" {
		t.Fatalf("Get = (%q, %v, %v), want v1", value, ok, err)
	}

	// overwrite
	if err := store.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	value, _, _ = store.Get("k")
	if string(value) != "v2" {
		t.Fatalf("Get after overwrite = %q, want v2", value)
	}

	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Fatal("key survives Delete")
	}
	if err := store.Delete("never-existed"); err != nil {
		t.Fatalf("Delete of missing key: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	testStore(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.Set("k", []byte("survives")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get("k")
	if err != nil || !ok || string(value) != "survives" {
		t.Fatalf("Get after reopen = (%q, %v, %v)", value, ok, err)
	}
}

func TestMemoryStoreDefensiveCopies(t *testing.T) {
	store := NewMemoryStore()
	original := []byte("abc")
	if err := store.Set("k", original); err != nil {
		t.Fatalf("Set: %v", err)
	}
	original[0] = 'X'

	value, _, _ := store.Get("k")
	if string(value) != "abc" {
		t.Errorf("stored value aliased caller's slice: %q", value)
	}

	value[0] = 'Y'
	again, _, _ := store.Get("k")
	if string(again) != "abc" {
		t.Errorf("returned value aliased stored slice: %q", again)
	}
}
