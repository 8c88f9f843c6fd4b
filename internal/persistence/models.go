package persistence

import "time"

// User represents a club member account as stored.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	Score        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Termin represents a club event as stored, including its roster.
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
	Deadline            *time.Time
	Teilnehmer          []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
