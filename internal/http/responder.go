package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/vereinsverwaltung/internal/application"
	"github.com/example/vereinsverwaltung/internal/logging"
)

var (
	errBadRequestBody      = errors.New("Ungültiges Anfrageformat.")
	errInvalidDatum        = errors.New("Ungültiges Datumsformat, erwartet JJJJ-MM-TT.")
	errMissingSessionToken = errors.New("Bitte einen Anmeldetoken angeben.")
)

// errorResponse is the wire shape for failures. Clients surface the "error"
// string verbatim, so every message here is user facing German.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

// handleServiceError maps application sentinels onto HTTP statuses with
// localized messages.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unbekannter Fehler"))
		return
	}

	status, message := classifyServiceError(err)

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, status, errorResponse{
			Error:  message,
			Fields: localizeValidationErrors(vErr),
		})
		return
	}

	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err, "error_kind", application.ErrorKind(err))
	}
	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func classifyServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Benutzername oder Passwort ist falsch."
	case errors.Is(err, application.ErrAccountDisabled):
		return http.StatusUnauthorized, "Dieses Konto ist deaktiviert."
	case errors.Is(err, application.ErrSessionExpired):
		return http.StatusUnauthorized, "Die Sitzung ist abgelaufen. Bitte erneut anmelden."
	case errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized, "Die Sitzung wurde beendet. Bitte erneut anmelden."
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, "Keine Berechtigung für diese Aktion."
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "Der angeforderte Eintrag wurde nicht gefunden."
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, "Der Benutzername ist bereits vergeben."
	case errors.Is(err, application.ErrAlreadyEnrolled):
		return http.StatusConflict, "Bereits für diesen Termin angemeldet."
	case errors.Is(err, application.ErrTerminFull):
		return http.StatusConflict, "Der Termin ist bereits ausgebucht."
	case errors.Is(err, application.ErrNotEnrolled):
		return http.StatusConflict, "Für diesen Termin ist keine Anmeldung vorhanden."
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			return http.StatusUnprocessableEntity, "Die Eingaben sind ungültig."
		}
		return http.StatusInternalServerError, "Interner Serverfehler."
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Die Anfrage ist fehlerhaft."
	case http.StatusUnauthorized:
		return "Anmeldung erforderlich."
	case http.StatusForbidden:
		return "Keine Berechtigung für diese Aktion."
	case http.StatusNotFound:
		return "Der angeforderte Eintrag wurde nicht gefunden."
	case http.StatusConflict:
		return "Die Anfrage steht im Konflikt mit dem aktuellen Zustand."
	case http.StatusUnprocessableEntity:
		return "Die Eingaben sind ungültig."
	default:
		return "Interner Serverfehler."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "titel is required":
		return "Der Titel ist erforderlich."
	case "datum is required":
		return "Das Datum ist erforderlich."
	case "anzahl must be positive":
		return "Die Teilnehmerzahl muss eine positive Zahl sein."
	case "score must not be negative":
		return "Der Score darf nicht negativ sein."
	case "beginn is invalid":
		return "Der Beginn muss im Format HH:MM angegeben werden."
	case "ende is invalid":
		return "Das Ende muss im Format HH:MM angegeben werden."
	case "ansprechpartner_mail is invalid":
		return "Die Ansprechpartner-Mailadresse ist ungültig."
	case "username is required":
		return "Der Benutzername ist erforderlich."
	case "username is invalid":
		return "Der Benutzername enthält unzulässige Zeichen."
	case "email is required":
		return "Die E-Mail-Adresse ist erforderlich."
	case "email is invalid":
		return "Die E-Mail-Adresse ist ungültig."
	case "password is required":
		return "Das Passwort ist erforderlich."
	case "password is too short":
		return "Das Passwort ist zu kurz."
	default:
		return message
	}
}
