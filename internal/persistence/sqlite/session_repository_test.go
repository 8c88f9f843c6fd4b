package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/vereinsverwaltung/internal/persistence"
)

func TestSessionRepository(t *testing.T) {
	pool := newTestPool(t)
	repo := NewSessionRepository(pool)
	ctx := context.Background()
	now := testTime(t)

	seedUser(t, pool, "u-anna", "Anna", 0)

	session := persistence.Session{
		ID:        "s-1",
		UserID:    "u-anna",
		Token:     "token-1",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	t.Run("get by token", func(t *testing.T) {
		got, err := repo.GetSession(ctx, "token-1")
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if got.ID != "s-1" || got.UserID != "u-anna" || got.RevokedAt != nil {
			t.Errorf("session = %+v", got)
		}
	})

	t.Run("duplicate token rejected", func(t *testing.T) {
		dup := session
		dup.ID = "s-2"
		if _, err := repo.CreateSession(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Errorf("CreateSession = %v, want ErrDuplicate", err)
		}
	})

	t.Run("revoke stamps the session", func(t *testing.T) {
		revokedAt := now.Add(time.Hour)
		got, err := repo.RevokeSession(ctx, "token-1", revokedAt)
		if err != nil {
			t.Fatalf("RevokeSession: %v", err)
		}
		if got.RevokedAt == nil || !got.RevokedAt.Equal(revokedAt) {
			t.Errorf("RevokedAt = %v, want %v", got.RevokedAt, revokedAt)
		}
		// Revoking again keeps the original stamp.
		again, err := repo.RevokeSession(ctx, "token-1", revokedAt.Add(time.Hour))
		if err != nil {
			t.Fatalf("second RevokeSession: %v", err)
		}
		if again.RevokedAt == nil || !again.RevokedAt.Equal(revokedAt) {
			t.Errorf("RevokedAt after second revoke = %v, want %v", again.RevokedAt, revokedAt)
		}
	})

	t.Run("revoke of unknown token reports not found", func(t *testing.T) {
		if _, err := repo.RevokeSession(ctx, "missing", now); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("RevokeSession = %v, want ErrNotFound", err)
		}
	})

	t.Run("expired cleanup", func(t *testing.T) {
		expired := persistence.Session{
			ID:        "s-old",
			UserID:    "u-anna",
			Token:     "token-old",
			ExpiresAt: now.Add(-time.Hour),
			CreatedAt: now.Add(-48 * time.Hour),
			UpdatedAt: now.Add(-48 * time.Hour),
		}
		if _, err := repo.CreateSession(ctx, expired); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if err := repo.DeleteExpiredSessions(ctx, now); err != nil {
			t.Fatalf("DeleteExpiredSessions: %v", err)
		}
		if _, err := repo.GetSession(ctx, "token-old"); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("GetSession after cleanup = %v, want ErrNotFound", err)
		}
		if _, err := repo.GetSession(ctx, "token-1"); err != nil {
			t.Errorf("live session removed: %v", err)
		}
	})
}
