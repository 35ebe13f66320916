package journal

import (
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "lmrc-journal-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := testDB(t)

	if err := db.Record("created", "a1b2c3d4", "/a.md", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := db.Record("moved", "a1b2c3d4", "/b/a.md", "from /a.md"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	// Most recent first.
	if entries[0].Op != "moved" || entries[1].Op != "created" {
		t.Errorf("order wrong: %v", entries)
	}
	if entries[0].Detail != "from /a.md" {
		t.Errorf("detail = %q", entries[0].Detail)
	}
}

func TestBySerial(t *testing.T) {
	db := testDB(t)
	_ = db.Record("created", "a1b2c3d4", "/a.md", "")
	_ = db.Record("created", "z9y8x7w6", "/z.md", "")
	_ = db.Record("deleted", "a1b2c3d4", "/a.md", "")

	entries, err := db.BySerial("a1b2c3d4")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Op != "created" || entries[1].Op != "deleted" {
		t.Errorf("order wrong: %v", entries)
	}
}

func TestRecent_LimitClamped(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 5; i++ {
		_ = db.Record("modified", "", "/x.md", "")
	}
	entries, err := db.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Errorf("len = %d, want 5", len(entries))
	}
}
