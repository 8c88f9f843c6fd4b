package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/vereinsverwaltung/internal/roster"
)

type stubCredentialStore struct {
	byUsername map[string]UserCredentials
	byID       map[string]User
}

func (s *stubCredentialStore) GetUserCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error) {
	creds, ok := s.byUsername[username]
	if !ok {
		return UserCredentials{}, ErrNotFound
	}
	return creds, nil
}

func (s *stubCredentialStore) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

type stubSessionRepo struct {
	sessions map[string]Session
	created  []Session
	revoked  []string
	pruned   int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]Session)}
}

func (s *stubSessionRepo) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.created = append(s.created, session)
	s.sessions[session.Token] = session
	return session, nil
}

func (s *stubSessionRepo) GetSession(ctx context.Context, token string) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *stubSessionRepo) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	s.revoked = append(s.revoked, token)
	return session, nil
}

func (s *stubSessionRepo) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.pruned++
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
}

func verifyStub(hashedPassword, password string) error {
	if hashedPassword != "hash:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

func activeAnna() UserCredentials {
	return UserCredentials{
		User: User{
			ID:       "u-anna",
			Username: "Anna",
			Email:    "anna@verein.example",
			Role:     roster.RoleMember,
			Active:   true,
			Score:    15,
		},
		PasswordHash: "hash:geheim01",
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials issue a session", func(t *testing.T) {
		t.Parallel()

		creds := &stubCredentialStore{byUsername: map[string]UserCredentials{"anna": activeAnna()}}
		sessions := newStubSessionRepo()
		tokens := 0
		service := NewAuthService(creds, sessions, verifyStub, func() string {
			tokens++
			return "tok-" + string(rune('0'+tokens))
		}, fixedNow, time.Hour)

		result, err := service.Authenticate(context.Background(), AuthenticateParams{Username: "  ANNA ", Password: "geheim01"})
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if result.User.ID != "u-anna" || result.User.Score != 15 {
			t.Errorf("user = %+v", result.User)
		}
		if result.Session.UserID != "u-anna" {
			t.Errorf("session user = %q", result.Session.UserID)
		}
		if !result.Session.ExpiresAt.Equal(fixedNow().Add(time.Hour)) {
			t.Errorf("ExpiresAt = %v", result.Session.ExpiresAt)
		}
		if sessions.pruned != 1 {
			t.Errorf("expired sessions pruned %d times, want 1", sessions.pruned)
		}
	})

	t.Run("unknown username is invalid credentials", func(t *testing.T) {
		t.Parallel()

		creds := &stubCredentialStore{byUsername: map[string]UserCredentials{}}
		service := NewAuthService(creds, newStubSessionRepo(), verifyStub, nil, fixedNow, time.Hour)

		_, err := service.Authenticate(context.Background(), AuthenticateParams{Username: "niemand", Password: "x"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("wrong password is invalid credentials", func(t *testing.T) {
		t.Parallel()

		creds := &stubCredentialStore{byUsername: map[string]UserCredentials{"anna": activeAnna()}}
		service := NewAuthService(creds, newStubSessionRepo(), verifyStub, nil, fixedNow, time.Hour)

		_, err := service.Authenticate(context.Background(), AuthenticateParams{Username: "anna", Password: "falsch"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("disabled account is rejected before password check", func(t *testing.T) {
		t.Parallel()

		disabled := activeAnna()
		disabled.User.Active = false
		creds := &stubCredentialStore{byUsername: map[string]UserCredentials{"anna": disabled}}
		service := NewAuthService(creds, newStubSessionRepo(), verifyStub, nil, fixedNow, time.Hour)

		_, err := service.Authenticate(context.Background(), AuthenticateParams{Username: "anna", Password: "geheim01"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Errorf("err = %v, want ErrAccountDisabled", err)
		}
	})

	t.Run("empty password is invalid credentials", func(t *testing.T) {
		t.Parallel()

		creds := &stubCredentialStore{byUsername: map[string]UserCredentials{"anna": activeAnna()}}
		service := NewAuthService(creds, newStubSessionRepo(), verifyStub, nil, fixedNow, time.Hour)

		_, err := service.Authenticate(context.Background(), AuthenticateParams{Username: "anna"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestValidateSession(t *testing.T) {
	t.Parallel()

	anna := activeAnna().User

	newService := func(session Session, user User) (*AuthService, *stubSessionRepo) {
		sessions := newStubSessionRepo()
		sessions.sessions[session.Token] = session
		creds := &stubCredentialStore{byID: map[string]User{user.ID: user}}
		return NewAuthService(creds, sessions, verifyStub, nil, fixedNow, time.Hour), sessions
	}

	t.Run("valid token yields the principal", func(t *testing.T) {
		t.Parallel()

		service, _ := newService(Session{Token: "tok-1", UserID: "u-anna", ExpiresAt: fixedNow().Add(time.Hour)}, anna)

		principal, err := service.ValidateSession(context.Background(), " tok-1 ")
		if err != nil {
			t.Fatalf("ValidateSession: %v", err)
		}
		if principal.UserID != "u-anna" || principal.Username != "Anna" || principal.Role != roster.RoleMember {
			t.Errorf("principal = %+v", principal)
		}
	})

	t.Run("tokens keep their case", func(t *testing.T) {
		t.Parallel()

		service, _ := newService(Session{Token: "ToK-MiXeD", UserID: "u-anna", ExpiresAt: fixedNow().Add(time.Hour)}, anna)

		if _, err := service.ValidateSession(context.Background(), "ToK-MiXeD"); err != nil {
			t.Fatalf("ValidateSession: %v", err)
		}
		if _, err := service.ValidateSession(context.Background(), "tok-mixed"); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("lowercased token err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		t.Parallel()

		service, _ := newService(Session{Token: "tok-1", UserID: "u-anna", ExpiresAt: fixedNow().Add(-time.Minute)}, anna)

		if _, err := service.ValidateSession(context.Background(), "tok-1"); !errors.Is(err, ErrSessionExpired) {
			t.Errorf("err = %v, want ErrSessionExpired", err)
		}
	})

	t.Run("revoked session", func(t *testing.T) {
		t.Parallel()

		revokedAt := fixedNow().Add(-time.Minute)
		service, _ := newService(Session{Token: "tok-1", UserID: "u-anna", ExpiresAt: fixedNow().Add(time.Hour), RevokedAt: &revokedAt}, anna)

		if _, err := service.ValidateSession(context.Background(), "tok-1"); !errors.Is(err, ErrSessionRevoked) {
			t.Errorf("err = %v, want ErrSessionRevoked", err)
		}
	})

	t.Run("deactivated account invalidates live session", func(t *testing.T) {
		t.Parallel()

		disabled := anna
		disabled.Active = false
		service, _ := newService(Session{Token: "tok-1", UserID: "u-anna", ExpiresAt: fixedNow().Add(time.Hour)}, disabled)

		if _, err := service.ValidateSession(context.Background(), "tok-1"); !errors.Is(err, ErrAccountDisabled) {
			t.Errorf("err = %v, want ErrAccountDisabled", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		service, _ := newService(Session{Token: "tok-1", UserID: "u-anna", ExpiresAt: fixedNow().Add(time.Hour)}, anna)

		if _, err := service.ValidateSession(context.Background(), "tok-falsch"); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})
}

func TestRevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("revokes and prunes", func(t *testing.T) {
		t.Parallel()

		sessions := newStubSessionRepo()
		sessions.sessions["tok-1"] = Session{Token: "tok-1", UserID: "u-anna"}
		creds := &stubCredentialStore{}
		service := NewAuthService(creds, sessions, verifyStub, nil, fixedNow, time.Hour)

		if err := service.RevokeSession(context.Background(), "tok-1"); err != nil {
			t.Fatalf("RevokeSession: %v", err)
		}
		if len(sessions.revoked) != 1 || sessions.revoked[0] != "tok-1" {
			t.Errorf("revoked = %v", sessions.revoked)
		}
		if sessions.pruned != 1 {
			t.Errorf("pruned = %d, want 1", sessions.pruned)
		}
	})

	t.Run("unknown token is invalid credentials", func(t *testing.T) {
		t.Parallel()

		service := NewAuthService(&stubCredentialStore{}, newStubSessionRepo(), verifyStub, nil, fixedNow, time.Hour)

		if err := service.RevokeSession(context.Background(), "tok-falsch"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}
