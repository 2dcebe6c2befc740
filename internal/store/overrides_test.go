package store

import (
	"testing"
)

func seedLog(t *testing.T, db *DB, id string) {
	t.Helper()
	if err := db.CreateLog(&LogEntry{ID: id, Content: "entry " + id}); err != nil {
		t.Fatalf("CreateLog %s: %v", id, err)
	}
}

func TestSetAndGetOverride(t *testing.T) {
	db := testDB(t)
	seedLog(t, db, "a")

	if err := db.SetOverride("a", 0.9); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}

	w, ok, err := db.GetOverride("a")
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if !ok {
		t.Fatal("override not found")
	}
	if w != 0.9 {
		t.Errorf("weight = %v, want 0.9", w)
	}
}

func TestSetOverrideReplaces(t *testing.T) {
	db := testDB(t)
	seedLog(t, db, "a")

	if err := db.SetOverride("a", 0.3); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if err := db.SetOverride("a", 0.8); err != nil {
		t.Fatalf("second SetOverride: %v", err)
	}

	w, ok, err := db.GetOverride("a")
	if err != nil || !ok {
		t.Fatalf("GetOverride: %v ok=%v", err, ok)
	}
	if w != 0.8 {
		t.Errorf("weight = %v, want 0.8", w)
	}
}

func TestGetOverrideMissing(t *testing.T) {
	db := testDB(t)

	_, ok, err := db.GetOverride("nope")
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if ok {
		t.Error("expected no override")
	}
}

func TestDeleteOverride(t *testing.T) {
	db := testDB(t)
	seedLog(t, db, "a")

	if err := db.SetOverride("a", 0.5); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if err := db.DeleteOverride("a"); err != nil {
		t.Fatalf("DeleteOverride: %v", err)
	}
	// Deleting again is a no-op
	if err := db.DeleteOverride("a"); err != nil {
		t.Fatalf("second DeleteOverride: %v", err)
	}

	_, ok, err := db.GetOverride("a")
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if ok {
		t.Error("override still present after delete")
	}
}

func TestClearAndAllOverrides(t *testing.T) {
	db := testDB(t)
	seedLog(t, db, "a")
	seedLog(t, db, "b")

	if err := db.SetOverride("a", 0.2); err != nil {
		t.Fatalf("SetOverride a: %v", err)
	}
	if err := db.SetOverride("b", 0.6); err != nil {
		t.Fatalf("SetOverride b: %v", err)
	}

	all, err := db.AllOverrides()
	if err != nil {
		t.Fatalf("AllOverrides: %v", err)
	}
	if len(all) != 2 || all["a"] != 0.2 || all["b"] != 0.6 {
		t.Errorf("AllOverrides = %v", all)
	}

	if err := db.ClearOverrides(); err != nil {
		t.Fatalf("ClearOverrides: %v", err)
	}
	all, err = db.AllOverrides()
	if err != nil {
		t.Fatalf("AllOverrides after clear: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("AllOverrides after clear = %v, want empty", all)
	}
}
