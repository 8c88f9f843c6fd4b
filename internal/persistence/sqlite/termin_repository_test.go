package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/vereinsverwaltung/internal/persistence"
)

func TestTerminRepositoryCRUD(t *testing.T) {
	pool := newTestPool(t)
	repo := NewTerminRepository(pool)
	ctx := context.Background()

	seedTermin(t, pool, "t-1", 10, 5)

	t.Run("get returns stored fields", func(t *testing.T) {
		termin, err := repo.GetTermin(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		if termin.Titel != "Sommerfest" {
			t.Errorf("Titel = %q, want Sommerfest", termin.Titel)
		}
		if got := termin.Datum.Format("2006-01-02"); got != "2024-07-20" {
			t.Errorf("Datum = %s, want 2024-07-20", got)
		}
		if termin.Anzahl != 10 || termin.Score != 5 {
			t.Errorf("Anzahl/Score = %d/%d, want 10/5", termin.Anzahl, termin.Score)
		}
		if len(termin.Teilnehmer) != 0 {
			t.Errorf("Teilnehmer = %v, want empty", termin.Teilnehmer)
		}
	})

	t.Run("update changes fields and keeps roster", func(t *testing.T) {
		termin, err := repo.GetTermin(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		termin.Titel = "Herbstfest"
		termin.Anzahl = 3
		termin.UpdatedAt = termin.UpdatedAt.Add(time.Hour)
		if err := repo.UpdateTermin(ctx, termin); err != nil {
			t.Fatalf("UpdateTermin: %v", err)
		}
		updated, err := repo.GetTermin(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetTermin after update: %v", err)
		}
		if updated.Titel != "Herbstfest" || updated.Anzahl != 3 {
			t.Errorf("updated = %q/%d, want Herbstfest/3", updated.Titel, updated.Anzahl)
		}
	})

	t.Run("update of unknown id reports not found", func(t *testing.T) {
		err := repo.UpdateTermin(ctx, persistence.Termin{ID: "missing", Datum: time.Now()})
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("UpdateTermin = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete removes the termin", func(t *testing.T) {
		seedTermin(t, pool, "t-del", 5, 0)
		if err := repo.DeleteTermin(ctx, "t-del"); err != nil {
			t.Fatalf("DeleteTermin: %v", err)
		}
		if _, err := repo.GetTermin(ctx, "t-del"); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("GetTermin after delete = %v, want ErrNotFound", err)
		}
		if err := repo.DeleteTermin(ctx, "t-del"); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("second DeleteTermin = %v, want ErrNotFound", err)
		}
	})
}

func TestTerminRepositoryEnroll(t *testing.T) {
	pool := newTestPool(t)
	repo := NewTerminRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	seedTermin(t, pool, "t-1", 2, 5)
	seedUser(t, pool, "u-anna", "Anna", 10)
	seedUser(t, pool, "u-ben", "ben", 0)
	seedUser(t, pool, "u-carla", "carla", 0)

	t.Run("enroll appends and awards score", func(t *testing.T) {
		if err := repo.EnrollTeilnehmer(ctx, "t-1", "Anna", false); err != nil {
			t.Fatalf("EnrollTeilnehmer: %v", err)
		}
		termin, err := repo.GetTermin(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		if len(termin.Teilnehmer) != 1 || termin.Teilnehmer[0] != "Anna" {
			t.Errorf("Teilnehmer = %v, want [Anna]", termin.Teilnehmer)
		}
		user, err := users.GetUser(ctx, "u-anna")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if user.Score != 15 {
			t.Errorf("Score = %d, want 15", user.Score)
		}
	})

	t.Run("duplicate enrollment ignores case and whitespace", func(t *testing.T) {
		err := repo.EnrollTeilnehmer(ctx, "t-1", "  anna ", false)
		if !errors.Is(err, persistence.ErrAlreadyEnrolled) {
			t.Fatalf("EnrollTeilnehmer = %v, want ErrAlreadyEnrolled", err)
		}
		user, err := users.GetUser(ctx, "u-anna")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if user.Score != 15 {
			t.Errorf("Score after rejected enroll = %d, want 15", user.Score)
		}
	})

	t.Run("capacity guard rejects when full", func(t *testing.T) {
		if err := repo.EnrollTeilnehmer(ctx, "t-1", "ben", false); err != nil {
			t.Fatalf("EnrollTeilnehmer ben: %v", err)
		}
		err := repo.EnrollTeilnehmer(ctx, "t-1", "carla", false)
		if !errors.Is(err, persistence.ErrTerminFull) {
			t.Fatalf("EnrollTeilnehmer carla = %v, want ErrTerminFull", err)
		}
		termin, err := repo.GetTermin(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		if len(termin.Teilnehmer) != 2 {
			t.Errorf("Teilnehmer = %v, want two entries", termin.Teilnehmer)
		}
	})

	t.Run("capacity override still enrolls", func(t *testing.T) {
		if err := repo.EnrollTeilnehmer(ctx, "t-1", "carla", true); err != nil {
			t.Fatalf("EnrollTeilnehmer with override: %v", err)
		}
		termin, err := repo.GetTermin(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		if len(termin.Teilnehmer) != 3 {
			t.Errorf("Teilnehmer = %v, want three entries", termin.Teilnehmer)
		}
	})

	t.Run("enroll without matching account keeps roster entry", func(t *testing.T) {
		seedTermin(t, pool, "t-guest", 5, 3)
		if err := repo.EnrollTeilnehmer(ctx, "t-guest", "gast", false); err != nil {
			t.Fatalf("EnrollTeilnehmer gast: %v", err)
		}
		termin, err := repo.GetTermin(ctx, "t-guest")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		if len(termin.Teilnehmer) != 1 || termin.Teilnehmer[0] != "gast" {
			t.Errorf("Teilnehmer = %v, want [gast]", termin.Teilnehmer)
		}
	})

	t.Run("unknown termin reports not found", func(t *testing.T) {
		err := repo.EnrollTeilnehmer(ctx, "missing", "Anna", false)
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("EnrollTeilnehmer = %v, want ErrNotFound", err)
		}
	})
}

func TestTerminRepositoryUnenroll(t *testing.T) {
	pool := newTestPool(t)
	repo := NewTerminRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	seedTermin(t, pool, "t-1", 5, 5)
	seedUser(t, pool, "u-anna", "Anna", 10)
	if err := repo.EnrollTeilnehmer(ctx, "t-1", "Anna", false); err != nil {
		t.Fatalf("EnrollTeilnehmer: %v", err)
	}

	t.Run("remove withdraws the award", func(t *testing.T) {
		if err := repo.RemoveTeilnehmer(ctx, "t-1", "ANNA"); err != nil {
			t.Fatalf("RemoveTeilnehmer: %v", err)
		}
		termin, err := repo.GetTermin(ctx, "t-1")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		if len(termin.Teilnehmer) != 0 {
			t.Errorf("Teilnehmer = %v, want empty", termin.Teilnehmer)
		}
		user, err := users.GetUser(ctx, "u-anna")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if user.Score != 10 {
			t.Errorf("Score = %d, want 10", user.Score)
		}
	})

	t.Run("remove of absent name reports not enrolled", func(t *testing.T) {
		err := repo.RemoveTeilnehmer(ctx, "t-1", "Anna")
		if !errors.Is(err, persistence.ErrNotEnrolled) {
			t.Errorf("RemoveTeilnehmer = %v, want ErrNotEnrolled", err)
		}
	})

	t.Run("withdrawal uses the awarded amount, not the current score", func(t *testing.T) {
		seedTermin(t, pool, "t-edit", 5, 10)
		seedUser(t, pool, "u-carla", "carla", 5)
		if err := repo.EnrollTeilnehmer(ctx, "t-edit", "carla", false); err != nil {
			t.Fatalf("EnrollTeilnehmer: %v", err)
		}

		// Raise the Termin score after enrollment; the refund must still be
		// the 10 points carla actually received.
		termin, err := repo.GetTermin(ctx, "t-edit")
		if err != nil {
			t.Fatalf("GetTermin: %v", err)
		}
		termin.Score = 50
		if err := repo.UpdateTermin(ctx, termin); err != nil {
			t.Fatalf("UpdateTermin: %v", err)
		}

		if err := repo.RemoveTeilnehmer(ctx, "t-edit", "carla"); err != nil {
			t.Fatalf("RemoveTeilnehmer: %v", err)
		}
		user, err := users.GetUser(ctx, "u-carla")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if user.Score != 5 {
			t.Errorf("Score = %d, want the pre-enrollment 5", user.Score)
		}
	})

	t.Run("score never drops below zero", func(t *testing.T) {
		seedTermin(t, pool, "t-big", 5, 50)
		seedUser(t, pool, "u-ben", "ben", 1)
		if err := repo.EnrollTeilnehmer(ctx, "t-big", "ben", false); err != nil {
			t.Fatalf("EnrollTeilnehmer: %v", err)
		}
		// Simulate an award that outgrew the account between enroll and remove.
		if err := users.UpdateUser(ctx, mustGetUser(t, users, "u-ben", 20)); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		if err := repo.RemoveTeilnehmer(ctx, "t-big", "ben"); err != nil {
			t.Fatalf("RemoveTeilnehmer: %v", err)
		}
		user, err := users.GetUser(ctx, "u-ben")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if user.Score != 0 {
			t.Errorf("Score = %d, want 0", user.Score)
		}
	})
}

func mustGetUser(t *testing.T, users *UserRepository, id string, score int) persistence.User {
	t.Helper()
	user, err := users.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUser %s: %v", id, err)
	}
	user.Score = score
	return user
}
