package repository

import (
	"path/filepath"
	"testing"
)

func TestPutThenGetReturnsFreshEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "cache.db"), 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.Put("vendor/a", 200, []byte(`{"name":"vendor/a"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, ok, err := c.Get("vendor/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if string(raw) != `{"name":"vendor/a"}` {
		t.Fatalf("unexpected cached payload: %s", raw)
	}
}

func TestGetIgnoresEntriesOlderThanEpoch(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "cache.db"), 500)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.Put("vendor/a", 10, []byte("stale")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, ok, err := c.Get("vendor/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected entries older than the cache epoch to be ignored")
	}
}

func TestGetReturnsFreshestOfSeveralEntries(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "cache.db"), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.Put("vendor/a", 10, []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put("vendor/a", 20, []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, ok, err := c.Get("vendor/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(raw) != "new" {
		t.Fatalf("expected the freshest entry %q, got ok=%v raw=%q", "new", ok, raw)
	}
}

func TestGetMissReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "cache.db"), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, ok, err := c.Get("vendor/nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected a cache miss")
	}
}
