package store

import (
	"testing"
)

func TestEncodeDecodeEmbedding(t *testing.T) {
	vec := []float32{0.1, -0.5, 3.14159, 0, 1e-7}
	got := decodeEmbedding(encodeEmbedding(vec))
	if len(got) != len(vec) {
		t.Fatalf("decoded %d values, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestSaveAndGetVector(t *testing.T) {
	db := testDB(t)

	entry := &LogEntry{ID: "log-001", Content: "a note"}
	if err := db.CreateLog(entry); err != nil {
		t.Fatalf("CreateLog: %v", err)
	}

	vec := []float32{0.25, -0.75, 0.5}
	if err := db.SaveVector("log-001", vec, "text-embedding-3-small"); err != nil {
		t.Fatalf("SaveVector: %v", err)
	}

	got, err := db.GetVector("log-001")
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if got == nil {
		t.Fatal("GetVector returned nil")
	}
	if got.Model != "text-embedding-3-small" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.Dimensions != 3 {
		t.Errorf("Dimensions = %d, want 3", got.Dimensions)
	}
	for i := range vec {
		if got.Embedding[i] != vec[i] {
			t.Errorf("Embedding[%d] = %v, want %v", i, got.Embedding[i], vec[i])
		}
	}
}

func TestSaveVectorReplaces(t *testing.T) {
	db := testDB(t)

	entry := &LogEntry{ID: "log-001", Content: "a note"}
	if err := db.CreateLog(entry); err != nil {
		t.Fatalf("CreateLog: %v", err)
	}

	if err := db.SaveVector("log-001", []float32{1, 2}, "v1"); err != nil {
		t.Fatalf("first SaveVector: %v", err)
	}
	if err := db.SaveVector("log-001", []float32{3, 4, 5}, "v2"); err != nil {
		t.Fatalf("second SaveVector: %v", err)
	}

	got, err := db.GetVector("log-001")
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if got.Model != "v2" || got.Dimensions != 3 {
		t.Errorf("got model=%q dims=%d, want v2/3", got.Model, got.Dimensions)
	}
}

func TestGetVectorNotFound(t *testing.T) {
	db := testDB(t)

	got, err := db.GetVector("missing")
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if got != nil {
		t.Errorf("GetVector = %+v, want nil", got)
	}
}

func TestAllVectors(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"a", "b"} {
		if err := db.CreateLog(&LogEntry{ID: id, Content: "entry " + id}); err != nil {
			t.Fatalf("CreateLog: %v", err)
		}
		if err := db.SaveVector(id, []float32{0.1, 0.2}, "test"); err != nil {
			t.Fatalf("SaveVector: %v", err)
		}
	}

	records, err := db.AllVectors()
	if err != nil {
		t.Fatalf("AllVectors: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("AllVectors returned %d records, want 2", len(records))
	}
}

func TestDeleteVector(t *testing.T) {
	db := testDB(t)

	if err := db.CreateLog(&LogEntry{ID: "a", Content: "entry"}); err != nil {
		t.Fatalf("CreateLog: %v", err)
	}
	if err := db.SaveVector("a", []float32{0.1}, "test"); err != nil {
		t.Fatalf("SaveVector: %v", err)
	}
	if err := db.DeleteVector("a"); err != nil {
		t.Fatalf("DeleteVector: %v", err)
	}

	got, err := db.GetVector("a")
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if got != nil {
		t.Error("vector still present after delete")
	}
}
