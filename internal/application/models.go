package application

import (
	"time"

	"github.com/example/vereinsverwaltung/internal/roster"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   string
	Username string
	Role     roster.Role
}

// TerminInput captures caller provided Termin fields.
type TerminInput struct {
	Titel               string
	Datum               time.Time
	Beginn              string
	Ende                string
	Beschreibung        string
	Anzahl              int
	Score               int
	AnsprechpartnerName string
	AnsprechpartnerMail string
	Deadline            *time.Time
}

// Termin represents a persisted club event with its enrollment roster.
type Termin struct {
	ID                  string
	Titel               string
	Datum               time.Time
	Beginn              string
	Ende                string
	Beschreibung        string
	Anzahl              int
	Score               int
	AnsprechpartnerName string
	AnsprechpartnerMail string
	// Deadline is stored and served but carries no enforcement rule.
	Deadline   *time.Time
	Teilnehmer []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RosterView maps the Termin onto the minimal shape the roster package
// computes over.
func (t Termin) RosterView() roster.Termin {
	return roster.Termin{
		ID:         t.ID,
		Titel:      t.Titel,
		Datum:      t.Datum,
		Anzahl:     t.Anzahl,
		Score:      t.Score,
		Teilnehmer: t.Teilnehmer,
	}
}

// CreateTerminParams wraps the data required to create a Termin.
type CreateTerminParams struct {
	Principal Principal
	Input     TerminInput
}

// UpdateTerminParams wraps the data required to update an existing Termin.
type UpdateTerminParams struct {
	Principal Principal
	TerminID  string
	Input     TerminInput
}

// EnrollParams wraps the data required to add a Teilnehmer to a Termin.
// Username defaults to the acting principal; naming someone else is an
// administrative roster operation.
type EnrollParams struct {
	Principal Principal
	TerminID  string
	Username  string
}

// UnenrollParams wraps the data required to remove a Teilnehmer.
type UnenrollParams struct {
	Principal Principal
	TerminID  string
	Username  string
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Username string
	Email    string
	Password string
	Role     roster.Role
	Active   bool
}

// User represents a club member account exposed by the application services.
type User struct {
	ID        string
	Username  string
	Email     string
	Role      roster.Role
	Active    bool
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RosterView maps the account onto the minimal shape the ranking operates on.
func (u User) RosterView() roster.User {
	return roster.User{ID: u.ID, Username: u.Username, Score: u.Score}
}

// RankedUser pairs an account with its Rangliste position.
type RankedUser struct {
	User
	Rank int
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user. Password is
// applied only when non-empty.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	User    User
	Session Session
}
