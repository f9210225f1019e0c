package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func testConnection(id string) *models.Connection {
	return &models.Connection{
		ID:          id,
		ServerURL:   "https://abs.example.com",
		Credentials: models.NewBearerCredentials("access-token", "refresh-token", time.Now().Add(time.Hour).Unix()),
		CustomHeaders: map[string]string{
			"X-Forwarded-User": "reader",
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestConnectionRepository(t *testing.T) {
	t.Run("Create & Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewConnectionRepository(db)
		conn := testConnection("conn-1")

		if err := repo.Create(conn); err != nil {
			t.Fatalf("failed to create connection: %v", err)
		}

		retrieved, err := repo.Get("conn-1")
		if err != nil {
			t.Fatalf("failed to get connection: %v", err)
		}

		if retrieved.ServerURL != conn.ServerURL {
			t.Errorf("expected server %s, got %s", conn.ServerURL, retrieved.ServerURL)
		}
		if retrieved.Credentials.AccessToken != "access-token" {
			t.Errorf("expected access token to round-trip, got %q", retrieved.Credentials.AccessToken)
		}
		if retrieved.CustomHeaders["X-Forwarded-User"] != "reader" {
			t.Error("custom headers should round-trip")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewConnectionRepository(db)
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Lookup returns nil after delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewConnectionRepository(db)
		conn := testConnection("conn-2")

		if err := repo.Create(conn); err != nil {
			t.Fatalf("failed to create connection: %v", err)
		}

		if repo.Lookup("conn-2") == nil {
			t.Fatal("expected Lookup to find stored connection")
		}

		if err := repo.Delete("conn-2"); err != nil {
			t.Fatalf("failed to delete connection: %v", err)
		}

		if repo.Lookup("conn-2") != nil {
			t.Error("expected Lookup to return nil for deleted connection")
		}
	})

	t.Run("UpdateCredentials", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewConnectionRepository(db)
		conn := testConnection("conn-3")

		if err := repo.Create(conn); err != nil {
			t.Fatalf("failed to create connection: %v", err)
		}

		fresh := models.NewBearerCredentials("new-access", "new-refresh", time.Now().Add(2*time.Hour).Unix())
		if err := repo.UpdateCredentials("conn-3", fresh); err != nil {
			t.Fatalf("failed to update credentials: %v", err)
		}

		retrieved, err := repo.Get("conn-3")
		if err != nil {
			t.Fatalf("failed to get connection: %v", err)
		}
		if retrieved.Credentials.AccessToken != "new-access" {
			t.Errorf("expected new access token, got %q", retrieved.Credentials.AccessToken)
		}
		if retrieved.Credentials.RefreshToken != "new-refresh" {
			t.Errorf("expected new refresh token, got %q", retrieved.Credentials.RefreshToken)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewConnectionRepository(db)
		for _, id := range []string{"a", "b", "c"} {
			if err := repo.Create(testConnection(id)); err != nil {
				t.Fatalf("failed to create connection %s: %v", id, err)
			}
		}

		list, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list connections: %v", err)
		}
		if len(list) != 3 {
			t.Errorf("expected 3 connections, got %d", len(list))
		}
	})
}

func TestProgressRepository(t *testing.T) {
	t.Run("Save & Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProgressRepository(db)
		progress := &models.MediaProgress{
			ItemID:       "book-1",
			CurrentTime:  120.5,
			TimeListened: 30,
			Duration:     3600,
			LastPlayedAt: time.Now(),
		}

		if err := repo.Save(progress); err != nil {
			t.Fatalf("failed to save progress: %v", err)
		}

		retrieved, err := repo.Get("book-1")
		if err != nil {
			t.Fatalf("failed to get progress: %v", err)
		}
		if retrieved.CurrentTime != 120.5 {
			t.Errorf("expected position 120.5, got %f", retrieved.CurrentTime)
		}
		if retrieved.TimeListened != 30 {
			t.Errorf("expected 30s listened, got %f", retrieved.TimeListened)
		}
	})

	t.Run("Save is an upsert", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProgressRepository(db)
		progress := &models.MediaProgress{ItemID: "book-1", CurrentTime: 10}
		if err := repo.Save(progress); err != nil {
			t.Fatalf("failed to save progress: %v", err)
		}

		progress.CurrentTime = 99
		if err := repo.Save(progress); err != nil {
			t.Fatalf("failed to re-save progress: %v", err)
		}

		retrieved, err := repo.Get("book-1")
		if err != nil {
			t.Fatalf("failed to get progress: %v", err)
		}
		if retrieved.CurrentTime != 99 {
			t.Errorf("expected position 99, got %f", retrieved.CurrentTime)
		}
	})

	t.Run("ResetTimeListened", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProgressRepository(db)
		progress := &models.MediaProgress{ItemID: "book-1", CurrentTime: 50, TimeListened: 45}
		if err := repo.Save(progress); err != nil {
			t.Fatalf("failed to save progress: %v", err)
		}

		if err := repo.ResetTimeListened("book-1"); err != nil {
			t.Fatalf("failed to reset listened time: %v", err)
		}

		retrieved, err := repo.Get("book-1")
		if err != nil {
			t.Fatalf("failed to get progress: %v", err)
		}
		if retrieved.TimeListened != 0 {
			t.Errorf("expected listened counter reset, got %f", retrieved.TimeListened)
		}
		if retrieved.CurrentTime != 50 {
			t.Errorf("position should survive a reset, got %f", retrieved.CurrentTime)
		}
	})

	t.Run("ResetTimeListened on missing row is a no-op", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProgressRepository(db)
		if err := repo.ResetTimeListened("missing"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProgressRepository(db)
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookmarkRepository(t *testing.T) {
	t.Run("Upsert defaults", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		bookmark := &models.Bookmark{BookID: "book-1", Time: 90, Title: "great line"}

		if err := repo.Upsert(bookmark); err != nil {
			t.Fatalf("failed to upsert bookmark: %v", err)
		}

		retrieved, err := repo.Get("book-1", 90)
		if err != nil {
			t.Fatalf("failed to get bookmark: %v", err)
		}
		if retrieved.Status != models.BookmarkPending {
			t.Errorf("expected pending status by default, got %s", retrieved.Status)
		}
		if retrieved.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("Upsert collapses onto identity key", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		if err := repo.Upsert(&models.Bookmark{BookID: "book-1", Time: 90, Title: "first"}); err != nil {
			t.Fatalf("failed to upsert bookmark: %v", err)
		}
		if err := repo.Upsert(&models.Bookmark{BookID: "book-1", Time: 90, Title: "second", Status: models.BookmarkSynced}); err != nil {
			t.Fatalf("failed to re-upsert bookmark: %v", err)
		}

		all, err := repo.ListByBook("book-1")
		if err != nil {
			t.Fatalf("failed to list bookmarks: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 bookmark after duplicate upsert, got %d", len(all))
		}
		if all[0].Title != "second" {
			t.Errorf("expected newest title to win, got %q", all[0].Title)
		}
		if all[0].Status != models.BookmarkSynced {
			t.Errorf("expected synced status, got %s", all[0].Status)
		}
	})

	t.Run("SetStatus", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		if err := repo.Upsert(&models.Bookmark{BookID: "book-1", Time: 90}); err != nil {
			t.Fatalf("failed to upsert bookmark: %v", err)
		}

		if err := repo.SetStatus("book-1", 90, models.BookmarkFailed); err != nil {
			t.Fatalf("failed to set status: %v", err)
		}

		retrieved, err := repo.Get("book-1", 90)
		if err != nil {
			t.Fatalf("failed to get bookmark: %v", err)
		}
		if retrieved.Status != models.BookmarkFailed {
			t.Errorf("expected failed status, got %s", retrieved.Status)
		}

		if err := repo.SetStatus("missing", 1, models.BookmarkSynced); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing bookmark, got %v", err)
		}
	})

	t.Run("Delete missing row is a no-op", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		if err := repo.Delete("missing", 1); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("ListPending includes failed", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		rows := []*models.Bookmark{
			{BookID: "b", Time: 1, Status: models.BookmarkPending},
			{BookID: "b", Time: 2, Status: models.BookmarkSynced},
			{BookID: "b", Time: 3, Status: models.BookmarkFailed},
		}
		for _, bookmark := range rows {
			if err := repo.Upsert(bookmark); err != nil {
				t.Fatalf("failed to upsert bookmark: %v", err)
			}
		}

		pending, err := repo.ListPending()
		if err != nil {
			t.Fatalf("failed to list pending: %v", err)
		}
		if len(pending) != 2 {
			t.Errorf("expected 2 rows needing a push, got %d", len(pending))
		}
		for _, bookmark := range pending {
			if bookmark.Status == models.BookmarkSynced {
				t.Error("synced bookmarks should not be swept")
			}
		}
	})
}

func TestBookRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewBookRepository(db)
	book := &models.Book{
		ID:       "book-1",
		Title:    "The Long Way",
		Author:   "B. Chambers",
		Duration: 33000,
		Chapters: []models.Chapter{
			{ID: 0, Title: "Chapter 1", Start: 0, End: 1800},
			{ID: 1, Title: "Chapter 2", Start: 1800, End: 3600},
		},
	}

	if err := repo.Save(book); err != nil {
		t.Fatalf("failed to save book: %v", err)
	}

	retrieved, err := repo.Get("book-1")
	if err != nil {
		t.Fatalf("failed to get book: %v", err)
	}
	if retrieved.Title != "The Long Way" {
		t.Errorf("expected title to round-trip, got %q", retrieved.Title)
	}
	if len(retrieved.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(retrieved.Chapters))
	}
	if retrieved.Chapters[1].Start != 1800 {
		t.Errorf("expected chapter start 1800, got %f", retrieved.Chapters[1].Start)
	}

	book.Duration = 36000
	if err := repo.Save(book); err != nil {
		t.Fatalf("failed to re-save book: %v", err)
	}

	retrieved, err = repo.Get("book-1")
	if err != nil {
		t.Fatalf("failed to get book: %v", err)
	}
	if retrieved.Duration != 36000 {
		t.Errorf("expected upsert to replace duration, got %f", retrieved.Duration)
	}
}

func TestAppStateRepository(t *testing.T) {
	t.Run("missing key returns empty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAppStateRepository(db)
		value, err := repo.Get("nope")
		if err != nil {
			t.Fatalf("failed to get state: %v", err)
		}
		if value != "" {
			t.Errorf("expected empty value, got %q", value)
		}
	})

	t.Run("session id round-trip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAppStateRepository(db)
		if err := repo.SetLastSessionID("session-abc"); err != nil {
			t.Fatalf("failed to set session id: %v", err)
		}

		id, err := repo.LastSessionID()
		if err != nil {
			t.Fatalf("failed to get session id: %v", err)
		}
		if id != "session-abc" {
			t.Errorf("expected session-abc, got %q", id)
		}

		if err := repo.ClearLastSessionID(); err != nil {
			t.Fatalf("failed to clear session id: %v", err)
		}

		id, err = repo.LastSessionID()
		if err != nil {
			t.Fatalf("failed to get session id: %v", err)
		}
		if id != "" {
			t.Errorf("expected cleared session id, got %q", id)
		}
	})

	t.Run("active connection pointer", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAppStateRepository(db)
		if err := repo.SetActiveConnectionID("conn-1"); err != nil {
			t.Fatalf("failed to set active connection: %v", err)
		}
		if err := repo.SetActiveConnectionID("conn-2"); err != nil {
			t.Fatalf("failed to replace active connection: %v", err)
		}

		id, err := repo.ActiveConnectionID()
		if err != nil {
			t.Fatalf("failed to get active connection: %v", err)
		}
		if id != "conn-2" {
			t.Errorf("expected conn-2, got %q", id)
		}
	})
}
