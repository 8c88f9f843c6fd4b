package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SearchUsers(ctx context.Context, usernameFragment string) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TerminRepository stores Termine and their enrollment rosters.
type TerminRepository interface {
	CreateTermin(ctx context.Context, termin Termin) error
	UpdateTermin(ctx context.Context, termin Termin) error
	GetTermin(ctx context.Context, id string) (Termin, error)
	ListTermine(ctx context.Context) ([]Termin, error)
	DeleteTermin(ctx context.Context, id string) error
	// EnrollTeilnehmer atomically checks duplicates and capacity, appends the
	// username, and awards the Termin score to the matching user account.
	EnrollTeilnehmer(ctx context.Context, terminID, username string, overrideCapacity bool) error
	// RemoveTeilnehmer atomically removes the username and withdraws the award.
	RemoveTeilnehmer(ctx context.Context, terminID, username string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
