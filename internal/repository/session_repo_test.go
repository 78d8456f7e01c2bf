package repository

import (
	"context"
	"reflect"
	"testing"

	"mentor-chat/internal/domain"
)

func TestKVSessionRepository_EmptyStore(t *testing.T) {
	repo := NewKVSessionRepository(NewMemoryKV())

	sessions, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions == nil || len(sessions) != 0 {
		t.Fatalf("expected empty list, got %#v", sessions)
	}

	id, err := repo.GetLastActiveID(context.Background())
	if err != nil || id != "" {
		t.Fatalf("expected empty last active id, got %q (%v)", id, err)
	}
}

func TestKVSessionRepository_Roundtrip(t *testing.T) {
	repo := NewKVSessionRepository(NewMemoryKV())

	sessions := []domain.Session{
		{
			ID:    "s1",
			Title: "Regresion lineal",
			Messages: []domain.Message{
				{ID: "m1", Role: domain.RoleUser, Text: "hola"},
				{ID: "m2", Role: domain.RoleModel, Text: "Pershendetje!", Sources: []domain.Source{}},
			},
		},
		{ID: "s2", Title: "ANOVA", Messages: []domain.Message{}},
	}

	if err := repo.SaveAll(context.Background(), sessions); err != nil {
		t.Fatalf("save all: %v", err)
	}
	got, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if !reflect.DeepEqual(got, sessions) {
		t.Fatalf("roundtrip mismatch:\n got %#v\nwant %#v", got, sessions)
	}

	// Sobrescritura total idempotente.
	if err := repo.SaveAll(context.Background(), sessions); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _ = repo.GetAll(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions after resave, got %d", len(got))
	}
}

func TestKVSessionRepository_LastActivePointer(t *testing.T) {
	repo := NewKVSessionRepository(NewMemoryKV())

	if err := repo.SetLastActiveID(context.Background(), "s9"); err != nil {
		t.Fatalf("set: %v", err)
	}
	id, err := repo.GetLastActiveID(context.Background())
	if err != nil || id != "s9" {
		t.Fatalf("expected s9, got %q (%v)", id, err)
	}

	if err := repo.ClearLastActiveID(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	id, _ = repo.GetLastActiveID(context.Background())
	if id != "" {
		t.Fatalf("expected cleared pointer, got %q", id)
	}
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("expected hit v, got %q ok=%v err=%v", v, ok, err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}
