package save

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nathoo/sceneweaver/actor"
	"github.com/nathoo/sceneweaver/world"
)

// storeFactories builds every local Store implementation for the shared
// conformance tests.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			st, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			return st
		},
		"sqlite": func() Store {
			st, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "saves.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore failed: %v", err)
			}
			return st
		},
	}
}

func TestStores_Conformance(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			testStore(t, newStore())
		})
	}
}

func testStore(t *testing.T, st Store) {
	ctx := context.Background()
	defer st.Close()

	if _, err := st.Get(ctx, "slot1"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound for empty slot, got %v", err)
	}
	if err := st.Delete(ctx, "slot1"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound deleting empty slot, got %v", err)
	}

	if err := st.Put(ctx, "slot1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := st.Put(ctx, "slot1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwriting Put failed: %v", err)
	}
	if err := st.Put(ctx, "autosave", []byte(`{}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := st.Get(ctx, "slot1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != `{"v":2}` {
		t.Errorf("expected the overwritten document, got %s", data)
	}

	slots, err := st.Slots(ctx)
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"autosave", "slot1"}) {
		t.Errorf("unexpected slots %v", slots)
	}

	if err := st.Delete(ctx, "slot1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Get(ctx, "slot1"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound after delete, got %v", err)
	}

	for _, bad := range []string{"", "../escape", "a/b", ".hidden", "has space"} {
		if err := st.Put(ctx, bad, []byte(`{}`)); !errors.Is(err, ErrInvalidSlot) {
			t.Errorf("Put(%q): expected ErrInvalidSlot, got %v", bad, err)
		}
	}
}

func TestValidateSlot(t *testing.T) {
	tests := []struct {
		slot string
		ok   bool
	}{
		{"autosave", true},
		{"slot_1", true},
		{"chapter-2.b", true},
		{"", false},
		{"-lead", false},
		{"a/b", false},
		{"a\\b", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		err := ValidateSlot(tt.slot)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateSlot(%q) = %v, want ok=%v", tt.slot, err, tt.ok)
		}
	}
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	for name, body := range map[string]string{
		"notes.txt":      "hello",
		".tmp-123":       "{}",
		".partial.json":  "{}",
		"real-slot.json": "{}",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	slots, err := st.Slots(context.Background())
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"real-slot"}) {
		t.Errorf("expected only real-slot, got %v", slots)
	}
}

func TestListSlots_NewestFirst(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	put := func(slot string, s *Snapshot) {
		t.Helper()
		data, err := Encode(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := st.Put(ctx, slot, data); err != nil {
			t.Fatal(err)
		}
	}
	put("old", &Snapshot{Timestamp: 100, Narrative: Narrative{CurrentScene: "intro"}})
	put("new", &Snapshot{
		Timestamp: 300,
		Narrative: Narrative{CurrentScene: "town"},
		World: &WorldState{
			Player:         &SerializedActor{TypeTag: "Dana", InitProps: actor.Props{Name: "Dana"}},
			CurrentMap:     "forest",
			PlayerPosition: &world.Point{X: 4, Y: 5},
		},
	})
	put("tie-b", &Snapshot{Timestamp: 200})
	put("tie-a", &Snapshot{Timestamp: 200})
	if err := st.Put(ctx, "broken", []byte("{oops")); err != nil {
		t.Fatal(err)
	}

	infos, err := ListSlots(ctx, st)
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}

	var order []string
	for _, info := range infos {
		order = append(order, info.Slot)
	}
	want := []string{"new", "tie-a", "tie-b", "old", "broken"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}

	newest := infos[0]
	if newest.SceneID != "town" || newest.MapID != "forest" || newest.ActorName != "Dana" {
		t.Errorf("unexpected metadata %+v", newest)
	}
	if newest.Position == nil || newest.Position.X != 4 {
		t.Errorf("unexpected position %+v", newest.Position)
	}
	if broken := infos[4]; broken.Timestamp != 0 || broken.SceneID != "" {
		t.Errorf("expected an empty entry for the malformed slot, got %+v", broken)
	}
}
