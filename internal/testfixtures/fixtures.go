// Package testfixtures provides deterministic clocks, identifier generators,
// and sample domain records for tests.
package testfixtures

import (
	"time"

	"github.com/example/vereinsverwaltung/internal/application"
	"github.com/example/vereinsverwaltung/internal/roster"
)

var referenceTime = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the shared deterministic starting instant.
func ReferenceTime() time.Time {
	return referenceTime
}

// TerminFixture builds a valid Termin a few weeks after the reference time.
// Callers override fields as needed.
func TerminFixture(id string) application.Termin {
	return application.Termin{
		ID:                  id,
		Titel:               "Sommerfest",
		Datum:               time.Date(2024, time.July, 20, 0, 0, 0, 0, time.UTC),
		Beginn:              "18:00",
		Ende:                "23:00",
		Beschreibung:        "Grillen am Vereinsheim",
		Anzahl:              20,
		Score:               5,
		AnsprechpartnerName: "Petra Huber",
		AnsprechpartnerMail: "petra@verein.example",
		CreatedAt:           ReferenceTime(),
		UpdatedAt:           ReferenceTime(),
	}
}

// UserFixture builds an active member account.
func UserFixture(id, username string) application.User {
	return application.User{
		ID:        id,
		Username:  username,
		Email:     username + "@verein.example",
		Role:      roster.RoleMember,
		Active:    true,
		CreatedAt: ReferenceTime(),
		UpdatedAt: ReferenceTime(),
	}
}

// AdminPrincipal returns a principal with the administrator role.
func AdminPrincipal() application.Principal {
	return application.Principal{UserID: "admin-1", Username: "vorstand", Role: roster.RoleAdmin}
}

// MemberPrincipal returns a principal with the member role.
func MemberPrincipal(username string) application.Principal {
	return application.Principal{UserID: "member-" + username, Username: username, Role: roster.RoleMember}
}
