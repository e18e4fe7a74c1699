package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "borrowd-store-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "borrowd.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}

	var tableName string
	err = store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='events'").Scan(&tableName)
	if err != nil {
		t.Fatalf("failed to query sqlite_master for events table: %v", err)
	}
	if tableName != "events" {
		t.Errorf("expected table 'events' to exist, but it was not found")
	}

	wanted := map[string]bool{
		"idx_events_ts_event":    false,
		"idx_events_identity":    false,
		"idx_events_correlation": false,
	}
	rows, err := store.db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name='events'")
	if err != nil {
		t.Fatalf("failed to list indices: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scanning index row failed: %v", err)
		}
		if _, ok := wanted[name]; ok {
			wanted[name] = true
		}
	}
	for name, found := range wanted {
		if !found {
			t.Errorf("%s not found", name)
		}
	}
}

func TestNewStore_Memory(t *testing.T) {
	store, err := NewStore(MemoryPath)
	if err != nil {
		t.Fatalf("NewStore(:memory:) failed: %v", err)
	}
	defer store.Close()

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		t.Fatalf("events table missing in memory journal: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty journal, got %d rows", count)
	}
}
