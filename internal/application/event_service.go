package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/example/vereinsverwaltung/internal/roster"
)

// TerminRepository captures the persistence operations needed by the event service.
type TerminRepository interface {
	CreateTermin(ctx context.Context, termin Termin) (Termin, error)
	GetTermin(ctx context.Context, id string) (Termin, error)
	UpdateTermin(ctx context.Context, termin Termin) (Termin, error)
	DeleteTermin(ctx context.Context, id string) error
	ListTermine(ctx context.Context) ([]Termin, error)
	// EnrollTeilnehmer appends username to the roster inside one transaction:
	// duplicate check, capacity guard (skipped when overrideCapacity), insert,
	// and score award. The transaction is the authoritative capacity check.
	EnrollTeilnehmer(ctx context.Context, terminID, username string, overrideCapacity bool) error
	// RemoveTeilnehmer deletes username from the roster and withdraws the
	// score award inside one transaction.
	RemoveTeilnehmer(ctx context.Context, terminID, username string) error
}

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// EventService orchestrates validation, authorization, and persistence for
// Termine and their enrollment rosters.
type EventService struct {
	termine     TerminRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for the event service.
func NewEventService(termine TerminRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(termine, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an EventService with a specified logger.
func NewEventServiceWithLogger(termine TerminRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{termine: termine, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateTermin validates input and persists a new Termin for administrators.
func (s *EventService) CreateTermin(ctx context.Context, params CreateTerminParams) (termin Termin, err error) {
	if s == nil {
		return Termin{}, fmt.Errorf("EventService is nil")
	}
	logger := s.loggerWith(ctx, "CreateTermin", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "termin creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("termin_id", termin.ID).InfoContext(ctx, "termin created")
	}()

	if !params.Principal.Role.CanManageEvents() {
		err = ErrUnauthorized
		return
	}
	if s.termine == nil {
		err = fmt.Errorf("termin repository not configured")
		return
	}

	normalized := normalizeTerminInput(params.Input)
	vErr := validateTerminInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	termin = Termin{
		ID:                  s.idGenerator(),
		Titel:               normalized.Titel,
		Datum:               normalized.Datum,
		Beginn:              normalized.Beginn,
		Ende:                normalized.Ende,
		Beschreibung:        normalized.Beschreibung,
		Anzahl:              normalized.Anzahl,
		Score:               normalized.Score,
		AnsprechpartnerName: normalized.AnsprechpartnerName,
		AnsprechpartnerMail: normalized.AnsprechpartnerMail,
		Deadline:            normalized.Deadline,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	termin, err = s.termine.CreateTermin(ctx, termin)
	if err != nil {
		termin = Termin{}
		return
	}
	return
}

// UpdateTermin validates input and updates an existing Termin for administrators.
func (s *EventService) UpdateTermin(ctx context.Context, params UpdateTerminParams) (termin Termin, err error) {
	if s == nil {
		return Termin{}, fmt.Errorf("EventService is nil")
	}
	logger := s.loggerWith(ctx, "UpdateTermin", "principal_id", params.Principal.UserID, "termin_id", params.TerminID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "termin update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "termin updated")
	}()

	if !params.Principal.Role.CanManageEvents() {
		err = ErrUnauthorized
		return
	}
	if s.termine == nil {
		err = fmt.Errorf("termin repository not configured")
		return
	}

	var existing Termin
	existing, err = s.termine.GetTermin(ctx, params.TerminID)
	if err != nil {
		return
	}

	normalized := normalizeTerminInput(params.Input)
	vErr := validateTerminInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Titel = normalized.Titel
	updated.Datum = normalized.Datum
	updated.Beginn = normalized.Beginn
	updated.Ende = normalized.Ende
	updated.Beschreibung = normalized.Beschreibung
	updated.Anzahl = normalized.Anzahl
	updated.Score = normalized.Score
	updated.AnsprechpartnerName = normalized.AnsprechpartnerName
	updated.AnsprechpartnerMail = normalized.AnsprechpartnerMail
	updated.Deadline = normalized.Deadline
	updated.UpdatedAt = s.now()

	termin, err = s.termine.UpdateTermin(ctx, updated)
	if err != nil {
		termin = Termin{}
		return
	}
	return
}

// DeleteTermin removes a Termin when requested by an administrator.
func (s *EventService) DeleteTermin(ctx context.Context, principal Principal, terminID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	logger := s.loggerWith(ctx, "DeleteTermin", "principal_id", principal.UserID, "termin_id", terminID)

	if !principal.Role.CanManageEvents() {
		logger.ErrorContext(ctx, "termin delete rejected", "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}
	if s.termine == nil {
		return fmt.Errorf("termin repository not configured")
	}

	if err := s.termine.DeleteTermin(ctx, terminID); err != nil {
		logger.ErrorContext(ctx, "termin delete failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "termin deleted")
	return nil
}

// GetTermin returns a single Termin.
func (s *EventService) GetTermin(ctx context.Context, terminID string) (Termin, error) {
	if s == nil {
		return Termin{}, fmt.Errorf("EventService is nil")
	}
	if s.termine == nil {
		return Termin{}, fmt.Errorf("termin repository not configured")
	}
	return s.termine.GetTermin(ctx, terminID)
}

// ListTermine returns all Termine ordered ascending by date. Filtering to
// upcoming Termine or a selected day happens in the client view-model.
func (s *EventService) ListTermine(ctx context.Context) ([]Termin, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.termine == nil {
		return nil, fmt.Errorf("termin repository not configured")
	}

	termine, err := s.termine.ListTermine(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Termin, len(termine))
	copy(out, termine)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Datum.Before(out[j].Datum)
	})
	return out, nil
}

// Enroll adds a Teilnehmer to a Termin. Members may only enroll themselves;
// administrators may name any user, and such roster-management adds bypass
// the capacity guard. The repository transaction is the authoritative check;
// the returned Termin is re-read after the mutation.
func (s *EventService) Enroll(ctx context.Context, params EnrollParams) (termin Termin, err error) {
	if s == nil {
		return Termin{}, fmt.Errorf("EventService is nil")
	}

	username := strings.TrimSpace(params.Username)
	if username == "" {
		username = strings.TrimSpace(params.Principal.Username)
	}

	logger := s.loggerWith(ctx, "Enroll",
		"principal_id", params.Principal.UserID,
		"termin_id", params.TerminID,
		"username", roster.Normalize(username),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "enrollment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "teilnehmer enrolled")
	}()

	if s.termine == nil {
		err = fmt.Errorf("termin repository not configured")
		return
	}
	if roster.Normalize(username) == "" {
		err = ErrUnauthorized
		return
	}

	isSelf := roster.Normalize(username) == roster.Normalize(params.Principal.Username)
	if !isSelf && !params.Principal.Role.CanManageEvents() {
		err = ErrUnauthorized
		return
	}

	// Only an admin enrolling someone else may exceed capacity.
	overrideCapacity := !isSelf && params.Principal.Role.CanManageEvents()

	if err = s.termine.EnrollTeilnehmer(ctx, params.TerminID, username, overrideCapacity); err != nil {
		return
	}

	termin, err = s.termine.GetTermin(ctx, params.TerminID)
	return
}

// Unenroll removes a Teilnehmer from a Termin. Administrator-only roster
// management. The returned Termin is re-read after the mutation.
func (s *EventService) Unenroll(ctx context.Context, params UnenrollParams) (termin Termin, err error) {
	if s == nil {
		return Termin{}, fmt.Errorf("EventService is nil")
	}

	logger := s.loggerWith(ctx, "Unenroll",
		"principal_id", params.Principal.UserID,
		"termin_id", params.TerminID,
		"username", roster.Normalize(params.Username),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "unenrollment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "teilnehmer removed")
	}()

	if !params.Principal.Role.CanManageEvents() {
		err = ErrUnauthorized
		return
	}
	if s.termine == nil {
		err = fmt.Errorf("termin repository not configured")
		return
	}
	if roster.Normalize(params.Username) == "" {
		err = ErrNotEnrolled
		return
	}

	if err = s.termine.RemoveTeilnehmer(ctx, params.TerminID, params.Username); err != nil {
		return
	}

	termin, err = s.termine.GetTermin(ctx, params.TerminID)
	return
}

func normalizeTerminInput(input TerminInput) TerminInput {
	out := input
	out.Titel = strings.TrimSpace(input.Titel)
	out.Beginn = strings.TrimSpace(input.Beginn)
	out.Ende = strings.TrimSpace(input.Ende)
	out.Beschreibung = strings.TrimSpace(input.Beschreibung)
	out.AnsprechpartnerName = strings.TrimSpace(input.AnsprechpartnerName)
	out.AnsprechpartnerMail = strings.ToLower(strings.TrimSpace(input.AnsprechpartnerMail))
	if !input.Datum.IsZero() {
		out.Datum = roster.Day(input.Datum)
	}
	if input.Deadline != nil {
		deadline := roster.Day(*input.Deadline)
		out.Deadline = &deadline
	}
	return out
}

func validateTerminInput(input TerminInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Titel == "" {
		vErr.add("titel", "titel is required")
	}
	if input.Datum.IsZero() {
		vErr.add("datum", "datum is required")
	}
	if input.Beginn != "" && !timePattern.MatchString(input.Beginn) {
		vErr.add("beginn", "beginn is invalid")
	}
	if input.Ende != "" && !timePattern.MatchString(input.Ende) {
		vErr.add("ende", "ende is invalid")
	}
	if input.Anzahl <= 0 {
		vErr.add("anzahl", "anzahl must be positive")
	}
	if input.Score < 0 {
		vErr.add("score", "score must not be negative")
	}
	if input.AnsprechpartnerMail != "" {
		if _, err := mail.ParseAddress(input.AnsprechpartnerMail); err != nil {
			vErr.add("ansprechpartner_mail", "ansprechpartner_mail is invalid")
		}
	}

	return vErr
}
