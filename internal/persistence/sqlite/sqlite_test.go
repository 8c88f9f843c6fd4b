package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/example/vereinsverwaltung/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool("file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("NewConnectionPool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := pool.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return pool
}

func testTime(t *testing.T) time.Time {
	t.Helper()
	stamp, err := time.Parse(time.RFC3339, "2024-03-01T10:00:00Z")
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return stamp
}

func seedUser(t *testing.T, pool *ConnectionPool, id, username string, score int) {
	t.Helper()

	repo := NewUserRepository(pool)
	now := testTime(t)
	err := repo.CreateUser(context.Background(), persistence.User{
		ID:           id,
		Username:     username,
		Email:        username + "@verein.example",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         "member",
		Active:       true,
		Score:        score,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

func seedTermin(t *testing.T, pool *ConnectionPool, id string, anzahl, score int) {
	t.Helper()

	repo := NewTerminRepository(pool)
	now := testTime(t)
	err := repo.CreateTermin(context.Background(), persistence.Termin{
		ID:                  id,
		Titel:               "Sommerfest",
		Datum:               time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC),
		Beginn:              "18:00",
		Ende:                "23:00",
		Beschreibung:        "Grillen am Vereinsheim",
		Anzahl:              anzahl,
		Score:               score,
		AnsprechpartnerName: "Petra Huber",
		AnsprechpartnerMail: "petra@verein.example",
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		t.Fatalf("seed termin %s: %v", id, err)
	}
}
