package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/vereinsverwaltung/internal/application"
)

type eventService interface {
	CreateTermin(ctx context.Context, params application.CreateTerminParams) (application.Termin, error)
	UpdateTermin(ctx context.Context, params application.UpdateTerminParams) (application.Termin, error)
	DeleteTermin(ctx context.Context, principal application.Principal, terminID string) error
	GetTermin(ctx context.Context, terminID string) (application.Termin, error)
	ListTermine(ctx context.Context) ([]application.Termin, error)
	Enroll(ctx context.Context, params application.EnrollParams) (application.Termin, error)
	Unenroll(ctx context.Context, params application.UnenrollParams) (application.Termin, error)
}

// EnrollmentRecorder counts roster mutations for the metrics endpoint.
type EnrollmentRecorder interface {
	RecordAnmeldung()
	RecordAbmeldung()
}

// TerminHandler serves the Termin CRUD and roster endpoints.
type TerminHandler struct {
	service   eventService
	recorder  EnrollmentRecorder
	responder responder
	logger    *slog.Logger
}

func NewTerminHandler(service eventService, recorder EnrollmentRecorder, logger *slog.Logger) *TerminHandler {
	base := defaultLogger(logger)
	return &TerminHandler{service: service, recorder: recorder, responder: newResponder(base), logger: base}
}

func (h *TerminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TerminHandler", operation, attrs...)
}

// List returns all Termine ordered by date. Available without a session so
// the Terminliste can render before login.
func (h *TerminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	termine, err := h.service.ListTermine(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list termine", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]terminDTO, 0, len(termine))
	for _, termin := range termine {
		payload = append(payload, toTerminDTO(termin))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Get returns a single Termin with its roster.
func (h *TerminHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	terminID := chi.URLParam(r, "id")
	termin, err := h.service.GetTermin(r.Context(), terminID)
	if err != nil {
		h.log(r.Context(), "Get", "termin_id", terminID).ErrorContext(r.Context(), "failed to load termin", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTerminDTO(termin))
}

// Create persists a new Termin for administrators.
func (h *TerminHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	req, err := decodeTerminRequest(r)
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode termin request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	input, err := req.apply(application.TerminInput{})
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to parse termin request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	termin, err := h.service.CreateTermin(r.Context(), application.CreateTerminParams{Principal: principal, Input: input})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create termin", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("termin_id", termin.ID).InfoContext(r.Context(), "termin created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTerminDTO(termin))
}

// Update modifies a Termin for administrators. PUT replaces the editable
// fields; PATCH merges the provided fields onto the stored record, so a
// partial body leaves the untouched fields as they are.
func (h *TerminHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	terminID := chi.URLParam(r, "id")
	req, err := decodeTerminRequest(r)
	if err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode termin request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	base := application.TerminInput{}
	if r.Method == http.MethodPatch {
		existing, err := h.service.GetTermin(r.Context(), terminID)
		if err != nil {
			h.log(r.Context(), "Update", "termin_id", terminID).ErrorContext(r.Context(), "failed to load termin for patch", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		base = terminInputFromTermin(existing)
	}
	input, err := req.apply(base)
	if err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to parse termin request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "termin_id", terminID)
	termin, err := h.service.UpdateTermin(r.Context(), application.UpdateTerminParams{
		Principal: principal,
		TerminID:  terminID,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update termin", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "termin updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTerminDTO(termin))
}

// Delete removes a Termin for administrators.
func (h *TerminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	terminID := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "termin_id", terminID)

	if err := h.service.DeleteTermin(r.Context(), principal, terminID); err != nil {
		logger.ErrorContext(r.Context(), "failed to delete termin", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "termin deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Enroll adds a Teilnehmer. Without a body username the acting principal
// enrolls themselves; administrators may name any user in the body.
func (h *TerminHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	terminID := chi.URLParam(r, "id")

	var req enrollRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "Enroll", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode enroll request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	logger := h.log(r.Context(), "Enroll", "principal_id", principal.UserID, "termin_id", terminID)
	termin, err := h.service.Enroll(r.Context(), application.EnrollParams{
		Principal: principal,
		TerminID:  terminID,
		Username:  req.Username,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "enrollment rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordAnmeldung()
	}
	logger.InfoContext(r.Context(), "teilnehmer enrolled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTerminDTO(termin))
}

// Unenroll removes the named Teilnehmer. Administrator roster management.
func (h *TerminHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	terminID := chi.URLParam(r, "id")
	username := chi.URLParam(r, "username")

	logger := h.log(r.Context(), "Unenroll", "principal_id", principal.UserID, "termin_id", terminID)
	termin, err := h.service.Unenroll(r.Context(), application.UnenrollParams{
		Principal: principal,
		TerminID:  terminID,
		Username:  username,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "unenrollment rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordAbmeldung()
	}
	logger.InfoContext(r.Context(), "teilnehmer removed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTerminDTO(termin))
}

const datumLayout = "2006-01-02"

// terminDTO is the wire shape of a Termin. Field names follow the German
// client vocabulary.
type terminDTO struct {
	ID                  string   `json:"id"`
	Titel               string   `json:"titel"`
	Datum               string   `json:"datum"`
	Beginn              string   `json:"beginn,omitempty"`
	Ende                string   `json:"ende,omitempty"`
	Beschreibung        string   `json:"beschreibung,omitempty"`
	Anzahl              int      `json:"anzahl"`
	Score               int      `json:"score"`
	AnsprechpartnerName string   `json:"ansprechpartner_name,omitempty"`
	AnsprechpartnerMail string   `json:"ansprechpartner_mail,omitempty"`
	Deadline            string   `json:"deadline,omitempty"`
	Teilnehmer          []string `json:"teilnehmer"`
}

type enrollRequest struct {
	Username string `json:"username"`
}

func toTerminDTO(termin application.Termin) terminDTO {
	dto := terminDTO{
		ID:                  termin.ID,
		Titel:               termin.Titel,
		Datum:               termin.Datum.Format(datumLayout),
		Beginn:              termin.Beginn,
		Ende:                termin.Ende,
		Beschreibung:        termin.Beschreibung,
		Anzahl:              termin.Anzahl,
		Score:               termin.Score,
		AnsprechpartnerName: termin.AnsprechpartnerName,
		AnsprechpartnerMail: termin.AnsprechpartnerMail,
		Teilnehmer:          termin.Teilnehmer,
	}
	if dto.Teilnehmer == nil {
		dto.Teilnehmer = []string{}
	}
	if termin.Deadline != nil {
		dto.Deadline = termin.Deadline.Format(datumLayout)
	}
	return dto
}

func decodeTerminRequest(r *http.Request) (terminRequest, error) {
	var req terminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return terminRequest{}, errBadRequestBody
	}
	return req, nil
}

// terminRequest uses pointer fields so a PATCH body can be told apart from
// an explicit zero value. Absent fields keep the base value in apply.
type terminRequest struct {
	Titel               *string `json:"titel"`
	Datum               *string `json:"datum"`
	Beginn              *string `json:"beginn"`
	Ende                *string `json:"ende"`
	Beschreibung        *string `json:"beschreibung"`
	Anzahl              *int    `json:"anzahl"`
	Score               *int    `json:"score"`
	AnsprechpartnerName *string `json:"ansprechpartner_name"`
	AnsprechpartnerMail *string `json:"ansprechpartner_mail"`
	Deadline            *string `json:"deadline"`
}

// apply overlays the provided fields onto base and parses the date fields.
// Full updates pass a zero base; PATCH passes the stored Termin.
func (req terminRequest) apply(base application.TerminInput) (application.TerminInput, error) {
	if req.Titel != nil {
		base.Titel = *req.Titel
	}
	if req.Beginn != nil {
		base.Beginn = *req.Beginn
	}
	if req.Ende != nil {
		base.Ende = *req.Ende
	}
	if req.Beschreibung != nil {
		base.Beschreibung = *req.Beschreibung
	}
	if req.Anzahl != nil {
		base.Anzahl = *req.Anzahl
	}
	if req.Score != nil {
		base.Score = *req.Score
	}
	if req.AnsprechpartnerName != nil {
		base.AnsprechpartnerName = *req.AnsprechpartnerName
	}
	if req.AnsprechpartnerMail != nil {
		base.AnsprechpartnerMail = *req.AnsprechpartnerMail
	}

	if req.Datum != nil {
		if *req.Datum == "" {
			base.Datum = time.Time{}
		} else {
			datum, err := time.Parse(datumLayout, *req.Datum)
			if err != nil {
				return application.TerminInput{}, errInvalidDatum
			}
			base.Datum = datum
		}
	}
	if req.Deadline != nil {
		if *req.Deadline == "" {
			base.Deadline = nil
		} else {
			deadline, err := time.Parse(datumLayout, *req.Deadline)
			if err != nil {
				return application.TerminInput{}, errInvalidDatum
			}
			base.Deadline = &deadline
		}
	}
	return base, nil
}

func terminInputFromTermin(termin application.Termin) application.TerminInput {
	return application.TerminInput{
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
	}
}
