package store

import (
	"testing"
)

func TestSaveAndListSuggestions(t *testing.T) {
	db := testDB(t)

	s := &Suggestion{
		Query:  "what should I focus on today",
		LogIDs: []string{"a", "b"},
		Output: "Follow up on the onboarding designs.",
	}
	if err := db.SaveSuggestion(s); err != nil {
		t.Fatalf("SaveSuggestion: %v", err)
	}
	if s.ID == 0 {
		t.Error("ID not assigned")
	}
	if s.CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}

	got, err := db.ListSuggestions(10)
	if err != nil {
		t.Fatalf("ListSuggestions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(got))
	}
	if got[0].Query != s.Query || got[0].Output != s.Output {
		t.Errorf("got %+v", got[0])
	}
	if len(got[0].LogIDs) != 2 || got[0].LogIDs[0] != "a" {
		t.Errorf("LogIDs = %v, want [a b]", got[0].LogIDs)
	}
}

func TestListSuggestionsLimit(t *testing.T) {
	db := testDB(t)

	for i := 0; i < 5; i++ {
		s := &Suggestion{Query: "q", Output: "o"}
		if err := db.SaveSuggestion(s); err != nil {
			t.Fatalf("SaveSuggestion: %v", err)
		}
	}

	got, err := db.ListSuggestions(3)
	if err != nil {
		t.Fatalf("ListSuggestions: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d suggestions, want 3", len(got))
	}
	// Newest first
	if got[0].ID < got[1].ID {
		t.Errorf("order not newest first: %d before %d", got[0].ID, got[1].ID)
	}
}
