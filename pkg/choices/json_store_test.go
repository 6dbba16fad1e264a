package choices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "choices.json")

	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}

	c := &Choice{UserTone: "RAVEN", AITone: "RAVEN", AIText: "The fabric most suited for this person is Raven"}
	if err := store.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.ID == "" || c.Timestamp.IsZero() {
		t.Errorf("Save did not assign id/timestamp: %+v", c)
	}

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserTone != "RAVEN" || !got.Agreed() {
		t.Errorf("Get = %+v", got)
	}

	// mutations of returned copies do not leak into the store
	got.UserTone = "PEARL"
	again, _ := store.Get(ctx, c.ID)
	if again.UserTone != "RAVEN" {
		t.Error("store returned a shared pointer")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestJSONStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "choices.json")

	store, _ := NewJSONStore(path)
	_ = store.Save(ctx, &Choice{UserTone: "UDAY"})
	_ = store.Save(ctx, &Choice{UserTone: "PEARL", AITone: "UDAY"})

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	reloaded, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reloaded.Count())
	}
}

func TestJSONStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := NewJSONStore(filepath.Join(t.TempDir(), "c.json"))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"PEARL", "UDAY", "RAVEN"} {
		_ = store.Save(ctx, &Choice{UserTone: name, Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}

	all, _ := store.List(ctx, 0)
	if len(all) != 3 || all[0].UserTone != "RAVEN" || all[2].UserTone != "PEARL" {
		t.Errorf("List(0) order = %v", names(all))
	}

	two, _ := store.List(ctx, 2)
	if len(two) != 2 || two[0].UserTone != "RAVEN" {
		t.Errorf("List(2) = %v", names(two))
	}
}

func TestJSONStoreValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := NewJSONStore(filepath.Join(t.TempDir(), "c.json"))

	if err := store.Save(ctx, &Choice{AITone: "RAVEN"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Save without user tone error = %v", err)
	}

	_ = store.Close()
	if err := store.Save(ctx, &Choice{UserTone: "RAVEN"}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save after Close error = %v", err)
	}
}

func TestAgreed(t *testing.T) {
	tests := []struct {
		user, ai string
		want     bool
	}{
		{"RAVEN", "RAVEN", true},
		{"RAVEN", "raven", true},
		{"RAVEN", "UDAY", false},
		{"RAVEN", "", false},
	}
	for _, tt := range tests {
		c := Choice{UserTone: tt.user, AITone: tt.ai}
		if c.Agreed() != tt.want {
			t.Errorf("Agreed(%q, %q) = %v", tt.user, tt.ai, c.Agreed())
		}
	}
}

func names(cs []*Choice) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.UserTone
	}
	return out
}
