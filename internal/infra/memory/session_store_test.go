package memory

import (
	"testing"
	"time"

	"mathquiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	store.Put(app.NewSession("c1", "Alice", nil, time.Now()))
	if _, ok := store.Get("c1"); !ok {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	if _, ok := store.Delete("c1"); !ok {
		t.Fatalf("expected delete to report removal")
	}
	if _, ok := store.Get("c1"); ok {
		t.Fatalf("expected session removed")
	}
	if _, ok := store.Delete("c1"); ok {
		t.Fatalf("expected second delete to be a no-op")
	}
}

func TestSessionStoreKeepsInsertionOrder(t *testing.T) {
	store := NewSessionStore()
	for _, id := range []string{"c3", "c1", "c2"} {
		store.Put(app.NewSession(id, id, nil, time.Now()))
	}
	store.Delete("c1")
	store.Put(app.NewSession("c4", "c4", nil, time.Now()))
	// replacing keeps the original slot
	store.Put(app.NewSession("c3", "again", nil, time.Now()))

	var got []string
	for _, s := range store.List() {
		got = append(got, s.ID())
	}
	want := []string{"c3", "c2", "c4"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if s, _ := store.Get("c3"); s.Snapshot().DisplayName != "again" {
		t.Fatalf("expected replaced session, got %+v", s.Snapshot())
	}
}
