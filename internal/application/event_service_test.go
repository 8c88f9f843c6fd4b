package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/vereinsverwaltung/internal/roster"
)

type enrollCall struct {
	terminID         string
	username         string
	overrideCapacity bool
}

type stubTerminRepo struct {
	termine map[string]Termin
	enrolls []enrollCall
	removes []enrollCall

	enrollErr error
	removeErr error
}

func newStubTerminRepo(termine ...Termin) *stubTerminRepo {
	repo := &stubTerminRepo{termine: make(map[string]Termin)}
	for _, t := range termine {
		repo.termine[t.ID] = t
	}
	return repo
}

func (s *stubTerminRepo) CreateTermin(ctx context.Context, termin Termin) (Termin, error) {
	s.termine[termin.ID] = termin
	return termin, nil
}

func (s *stubTerminRepo) GetTermin(ctx context.Context, id string) (Termin, error) {
	termin, ok := s.termine[id]
	if !ok {
		return Termin{}, ErrNotFound
	}
	return termin, nil
}

func (s *stubTerminRepo) UpdateTermin(ctx context.Context, termin Termin) (Termin, error) {
	if _, ok := s.termine[termin.ID]; !ok {
		return Termin{}, ErrNotFound
	}
	s.termine[termin.ID] = termin
	return termin, nil
}

func (s *stubTerminRepo) DeleteTermin(ctx context.Context, id string) error {
	if _, ok := s.termine[id]; !ok {
		return ErrNotFound
	}
	delete(s.termine, id)
	return nil
}

func (s *stubTerminRepo) ListTermine(ctx context.Context) ([]Termin, error) {
	out := make([]Termin, 0, len(s.termine))
	for _, t := range s.termine {
		out = append(out, t)
	}
	return out, nil
}

func (s *stubTerminRepo) EnrollTeilnehmer(ctx context.Context, terminID, username string, overrideCapacity bool) error {
	s.enrolls = append(s.enrolls, enrollCall{terminID: terminID, username: username, overrideCapacity: overrideCapacity})
	if s.enrollErr != nil {
		return s.enrollErr
	}
	termin, ok := s.termine[terminID]
	if !ok {
		return ErrNotFound
	}
	termin.Teilnehmer = append(termin.Teilnehmer, username)
	s.termine[terminID] = termin
	return nil
}

func (s *stubTerminRepo) RemoveTeilnehmer(ctx context.Context, terminID, username string) error {
	s.removes = append(s.removes, enrollCall{terminID: terminID, username: username})
	if s.removeErr != nil {
		return s.removeErr
	}
	termin, ok := s.termine[terminID]
	if !ok {
		return ErrNotFound
	}
	kept := termin.Teilnehmer[:0]
	for _, name := range termin.Teilnehmer {
		if roster.Normalize(name) != roster.Normalize(username) {
			kept = append(kept, name)
		}
	}
	termin.Teilnehmer = kept
	s.termine[terminID] = termin
	return nil
}

func validTerminInput() TerminInput {
	return TerminInput{
		Titel:  "Sommerfest",
		Datum:  time.Date(2024, time.July, 20, 14, 30, 0, 0, time.UTC),
		Beginn: "18:00",
		Ende:   "23:00",
		Anzahl: 20,
		Score:  5,
	}
}

func storedTermin() Termin {
	return Termin{
		ID:     "t-1",
		Titel:  "Sommerfest",
		Datum:  time.Date(2024, time.July, 20, 0, 0, 0, 0, time.UTC),
		Anzahl: 20,
		Score:  5,
	}
}

func TestCreateTermin(t *testing.T) {
	t.Parallel()

	t.Run("administrator creates a termin with the date truncated to the day", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo()
		service := NewEventService(repo, func() string { return "t-1" }, fixedNow)

		termin, err := service.CreateTermin(context.Background(), CreateTerminParams{Principal: adminPrincipal(), Input: validTerminInput()})
		if err != nil {
			t.Fatalf("CreateTermin: %v", err)
		}
		if termin.ID != "t-1" {
			t.Errorf("id = %q", termin.ID)
		}
		if h, m, _ := termin.Datum.Clock(); h != 0 || m != 0 {
			t.Errorf("datum not truncated: %v", termin.Datum)
		}
	})

	t.Run("member may not create", func(t *testing.T) {
		t.Parallel()

		service := NewEventService(newStubTerminRepo(), nil, fixedNow)

		_, err := service.CreateTermin(context.Background(), CreateTerminParams{Principal: memberPrincipal("u-1", "anna"), Input: validTerminInput()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("invalid input is collected per field", func(t *testing.T) {
		t.Parallel()

		service := NewEventService(newStubTerminRepo(), nil, fixedNow)

		input := TerminInput{Beginn: "25:99", Anzahl: 0, Score: -1}
		_, err := service.CreateTermin(context.Background(), CreateTerminParams{Principal: adminPrincipal(), Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("err = %v, want *ValidationError", err)
		}
		for _, field := range []string{"titel", "datum", "beginn", "anzahl", "score"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("missing field error for %s: %v", field, vErr.FieldErrors)
			}
		}
	})
}

func TestListTermine(t *testing.T) {
	t.Parallel()

	early := storedTermin()
	late := storedTermin()
	late.ID = "t-2"
	late.Datum = early.Datum.AddDate(0, 1, 0)

	repo := newStubTerminRepo(late, early)
	service := NewEventService(repo, nil, fixedNow)

	termine, err := service.ListTermine(context.Background())
	if err != nil {
		t.Fatalf("ListTermine: %v", err)
	}
	if len(termine) != 2 || !termine[0].Datum.Before(termine[1].Datum) {
		t.Errorf("termine not sorted ascending: %v, %v", termine[0].Datum, termine[1].Datum)
	}
}

func TestEnroll(t *testing.T) {
	t.Parallel()

	t.Run("member enrolls themselves without capacity override", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		service := NewEventService(repo, nil, fixedNow)

		termin, err := service.Enroll(context.Background(), EnrollParams{
			Principal: memberPrincipal("u-1", "anna"),
			TerminID:  "t-1",
		})
		if err != nil {
			t.Fatalf("Enroll: %v", err)
		}
		if len(repo.enrolls) != 1 {
			t.Fatalf("enroll calls = %d", len(repo.enrolls))
		}
		call := repo.enrolls[0]
		if call.username != "anna" || call.overrideCapacity {
			t.Errorf("call = %+v", call)
		}
		if len(termin.Teilnehmer) != 1 {
			t.Errorf("returned termin not refreshed: %+v", termin)
		}
	})

	t.Run("member naming themselves explicitly is still a self enroll", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		service := NewEventService(repo, nil, fixedNow)

		_, err := service.Enroll(context.Background(), EnrollParams{
			Principal: memberPrincipal("u-1", "anna"),
			TerminID:  "t-1",
			Username:  " ANNA ",
		})
		if err != nil {
			t.Fatalf("Enroll: %v", err)
		}
		if repo.enrolls[0].overrideCapacity {
			t.Error("self enroll must not override capacity")
		}
	})

	t.Run("member may not enroll someone else", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		service := NewEventService(repo, nil, fixedNow)

		_, err := service.Enroll(context.Background(), EnrollParams{
			Principal: memberPrincipal("u-1", "anna"),
			TerminID:  "t-1",
			Username:  "berta",
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
		if len(repo.enrolls) != 0 {
			t.Errorf("repository called despite rejection: %v", repo.enrolls)
		}
	})

	t.Run("administrator adding someone else overrides capacity", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		service := NewEventService(repo, nil, fixedNow)

		_, err := service.Enroll(context.Background(), EnrollParams{
			Principal: adminPrincipal(),
			TerminID:  "t-1",
			Username:  "berta",
		})
		if err != nil {
			t.Fatalf("Enroll: %v", err)
		}
		if !repo.enrolls[0].overrideCapacity {
			t.Error("admin roster add must override capacity")
		}
	})

	t.Run("administrator enrolling themselves does not override capacity", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		service := NewEventService(repo, nil, fixedNow)

		_, err := service.Enroll(context.Background(), EnrollParams{
			Principal: adminPrincipal(),
			TerminID:  "t-1",
		})
		if err != nil {
			t.Fatalf("Enroll: %v", err)
		}
		if repo.enrolls[0].overrideCapacity {
			t.Error("admin self enroll must not override capacity")
		}
	})

	t.Run("repository conflicts pass through", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		repo.enrollErr = ErrTerminFull
		service := NewEventService(repo, nil, fixedNow)

		_, err := service.Enroll(context.Background(), EnrollParams{
			Principal: memberPrincipal("u-1", "anna"),
			TerminID:  "t-1",
		})
		if !errors.Is(err, ErrTerminFull) {
			t.Errorf("err = %v, want ErrTerminFull", err)
		}
	})
}

func TestUnenroll(t *testing.T) {
	t.Parallel()

	t.Run("administrator removes a teilnehmer", func(t *testing.T) {
		t.Parallel()

		enrolled := storedTermin()
		enrolled.Teilnehmer = []string{"anna"}
		repo := newStubTerminRepo(enrolled)
		service := NewEventService(repo, nil, fixedNow)

		termin, err := service.Unenroll(context.Background(), UnenrollParams{
			Principal: adminPrincipal(),
			TerminID:  "t-1",
			Username:  "anna",
		})
		if err != nil {
			t.Fatalf("Unenroll: %v", err)
		}
		if len(termin.Teilnehmer) != 0 {
			t.Errorf("teilnehmer = %v, want empty", termin.Teilnehmer)
		}
	})

	t.Run("member may not remove anyone", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		service := NewEventService(repo, nil, fixedNow)

		_, err := service.Unenroll(context.Background(), UnenrollParams{
			Principal: memberPrincipal("u-1", "anna"),
			TerminID:  "t-1",
			Username:  "anna",
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("absent teilnehmer passes through", func(t *testing.T) {
		t.Parallel()

		repo := newStubTerminRepo(storedTermin())
		repo.removeErr = ErrNotEnrolled
		service := NewEventService(repo, nil, fixedNow)

		_, err := service.Unenroll(context.Background(), UnenrollParams{
			Principal: adminPrincipal(),
			TerminID:  "t-1",
			Username:  "anna",
		})
		if !errors.Is(err, ErrNotEnrolled) {
			t.Errorf("err = %v, want ErrNotEnrolled", err)
		}
	})
}
