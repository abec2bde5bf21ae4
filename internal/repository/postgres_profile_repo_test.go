package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/y1ran/backend/internal/model"
)

func TestPostgresProfileRepo_CreateIfAbsent_KeepsExistingRow(t *testing.T) {
	db := setupIntegrationDB(t)
	repo := NewPostgresProfileRepo(db)
	ctx := context.Background()

	first, err := repo.CreateIfAbsent(ctx, &model.Profile{
		UserID: "user-1", Email: "a@example.com", Provider: "local",
	})
	if err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
	if first.DisplayName != "" || first.AvatarURL != "" {
		t.Errorf("new profile = %+v, want empty display name and avatar", first)
	}

	name := "Alice"
	if _, err := repo.Update(ctx, "user-1", &name, nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	second, err := repo.CreateIfAbsent(ctx, &model.Profile{
		UserID: "user-1", Email: "changed@example.com", Provider: "google",
	})
	if err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
	if second.DisplayName != "Alice" || second.Email != "a@example.com" {
		t.Errorf("existing profile was modified: %+v", second)
	}
}

func TestPostgresProfileRepo_CreateIfAbsent_Concurrent(t *testing.T) {
	db := setupIntegrationDB(t)
	repo := NewPostgresProfileRepo(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreateIfAbsent(ctx, &model.Profile{UserID: "user-c", Provider: "local"}); err != nil {
				t.Errorf("CreateIfAbsent() error = %v", err)
			}
		}()
	}
	wg.Wait()

	var count int
	if err := db.QueryRow(`SELECT count(*) FROM profiles WHERE user_id = $1`, "user-c").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestPostgresProfileRepo_Update_PartialFields(t *testing.T) {
	db := setupIntegrationDB(t)
	repo := NewPostgresProfileRepo(db)
	ctx := context.Background()

	if _, err := repo.CreateIfAbsent(ctx, &model.Profile{UserID: "user-2", Provider: "local"}); err != nil {
		t.Fatal(err)
	}

	avatar := "https://example.com/a.png"
	updated, err := repo.Update(ctx, "user-2", nil, &avatar)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.AvatarURL != avatar || updated.DisplayName != "" {
		t.Errorf("Update() = %+v", updated)
	}

	missing, err := repo.Update(ctx, "nobody", nil, &avatar)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown user, got %+v", missing)
	}
}
