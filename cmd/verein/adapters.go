package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/vereinsverwaltung/internal/application"
	"github.com/example/vereinsverwaltung/internal/persistence"
	"github.com/example/vereinsverwaltung/internal/persistence/sqlite"
	"github.com/example/vereinsverwaltung/internal/roster"
)

// The adapters translate between the persistence records and the application
// models, and map storage sentinels onto the application error taxonomy.

func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	case errors.Is(err, persistence.ErrAlreadyEnrolled):
		return application.ErrAlreadyEnrolled
	case errors.Is(err, persistence.ErrTerminFull):
		return application.ErrTerminFull
	case errors.Is(err, persistence.ErrNotEnrolled):
		return application.ErrNotEnrolled
	default:
		return err
	}
}

func toApplicationUser(user persistence.User) application.User {
	return application.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      roster.ParseRole(user.Role),
		Active:    user.Active,
		Score:     user.Score,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: passwordHash,
		Role:         string(user.Role),
		Active:       user.Active,
		Score:        user.Score,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationTermin(termin persistence.Termin) application.Termin {
	return application.Termin{
		ID:                  termin.ID,
		Titel:               termin.Titel,
		Datum:               termin.Datum,
		Beginn:              termin.Beginn,
		Ende:                termin.Ende,
		Beschreibung:        termin.Beschreibung,
		Anzahl:              termin.Anzahl,
		Score:               termin.Score,
		AnsprechpartnerName: termin.AnsprechpartnerName,
		AnsprechpartnerMail: termin.AnsprechpartnerMail,
		Deadline:            termin.Deadline,
		Teilnehmer:          termin.Teilnehmer,
		CreatedAt:           termin.CreatedAt,
		UpdatedAt:           termin.UpdatedAt,
	}
}

func toPersistenceTermin(termin application.Termin) persistence.Termin {
	return persistence.Termin{
		ID:                  termin.ID,
		Titel:               termin.Titel,
		Datum:               termin.Datum,
		Beginn:              termin.Beginn,
		Ende:                termin.Ende,
		Beschreibung:        termin.Beschreibung,
		Anzahl:              termin.Anzahl,
		Score:               termin.Score,
		AnsprechpartnerName: termin.AnsprechpartnerName,
		AnsprechpartnerMail: termin.AnsprechpartnerMail,
		Deadline:            termin.Deadline,
		Teilnehmer:          termin.Teilnehmer,
		CreatedAt:           termin.CreatedAt,
		UpdatedAt:           termin.UpdatedAt,
	}
}

func toApplicationSession(session persistence.Session) application.Session {
	return application.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: session.RevokedAt,
	}
}

type userRepositoryAdapter struct {
	repo *sqlite.UserRepository
}

func newUserRepositoryAdapter(repo *sqlite.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, mapStorageError(err)
	}
	return user, nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	user, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(user), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, "")); err != nil {
		return application.User{}, mapStorageError(err)
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return mapStorageError(a.repo.UpdatePassword(ctx, id, passwordHash))
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return mapStorageError(a.repo.DeleteUser(ctx, id))
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	users, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	out := make([]application.User, 0, len(users))
	for _, user := range users {
		out = append(out, toApplicationUser(user))
	}
	return out, nil
}

func (a *userRepositoryAdapter) SearchUsers(ctx context.Context, usernameFragment string) ([]application.User, error) {
	users, err := a.repo.SearchUsers(ctx, usernameFragment)
	if err != nil {
		return nil, mapStorageError(err)
	}
	out := make([]application.User, 0, len(users))
	for _, user := range users {
		out = append(out, toApplicationUser(user))
	}
	return out, nil
}

type credentialStoreAdapter struct {
	repo *sqlite.UserRepository
}

func newCredentialStoreAdapter(repo *sqlite.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	user, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, mapStorageError(err)
	}
	return application.UserCredentials{User: toApplicationUser(user), PasswordHash: user.PasswordHash}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	user, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(user), nil
}

type sessionRepositoryAdapter struct {
	repo *sqlite.SessionRepository
}

func newSessionRepositoryAdapter(repo *sqlite.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	persisted, err := a.repo.CreateSession(ctx, persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return toApplicationSession(persisted), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	session, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return toApplicationSession(session), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	session, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return toApplicationSession(session), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapStorageError(a.repo.DeleteExpiredSessions(ctx, reference))
}

type terminRepositoryAdapter struct {
	repo *sqlite.TerminRepository
}

func newTerminRepositoryAdapter(repo *sqlite.TerminRepository) *terminRepositoryAdapter {
	return &terminRepositoryAdapter{repo: repo}
}

func (a *terminRepositoryAdapter) CreateTermin(ctx context.Context, termin application.Termin) (application.Termin, error) {
	if err := a.repo.CreateTermin(ctx, toPersistenceTermin(termin)); err != nil {
		return application.Termin{}, mapStorageError(err)
	}
	return termin, nil
}

func (a *terminRepositoryAdapter) GetTermin(ctx context.Context, id string) (application.Termin, error) {
	termin, err := a.repo.GetTermin(ctx, id)
	if err != nil {
		return application.Termin{}, mapStorageError(err)
	}
	return toApplicationTermin(termin), nil
}

func (a *terminRepositoryAdapter) UpdateTermin(ctx context.Context, termin application.Termin) (application.Termin, error) {
	if err := a.repo.UpdateTermin(ctx, toPersistenceTermin(termin)); err != nil {
		return application.Termin{}, mapStorageError(err)
	}
	return a.GetTermin(ctx, termin.ID)
}

func (a *terminRepositoryAdapter) DeleteTermin(ctx context.Context, id string) error {
	return mapStorageError(a.repo.DeleteTermin(ctx, id))
}

func (a *terminRepositoryAdapter) ListTermine(ctx context.Context) ([]application.Termin, error) {
	termine, err := a.repo.ListTermine(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	out := make([]application.Termin, 0, len(termine))
	for _, termin := range termine {
		out = append(out, toApplicationTermin(termin))
	}
	return out, nil
}

func (a *terminRepositoryAdapter) EnrollTeilnehmer(ctx context.Context, terminID, username string, overrideCapacity bool) error {
	return mapStorageError(a.repo.EnrollTeilnehmer(ctx, terminID, username, overrideCapacity))
}

func (a *terminRepositoryAdapter) RemoveTeilnehmer(ctx context.Context, terminID, username string) error {
	return mapStorageError(a.repo.RemoveTeilnehmer(ctx, terminID, username))
}
