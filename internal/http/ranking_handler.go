package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/example/vereinsverwaltung/internal/application"
	"github.com/example/vereinsverwaltung/internal/export"
	"github.com/example/vereinsverwaltung/internal/roster"
)

type rankingService interface {
	Ranking(ctx context.Context, principal application.Principal) ([]application.RankedUser, error)
}

// RankingHandler serves the Rangliste, as JSON and as Excel download.
type RankingHandler struct {
	service   rankingService
	responder responder
	logger    *slog.Logger
}

func NewRankingHandler(service rankingService, logger *slog.Logger) *RankingHandler {
	base := defaultLogger(logger)
	return &RankingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RankingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RankingHandler", operation, attrs...)
}

// List returns the Rangliste ordered by score.
func (h *RankingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	ranked, err := h.service.Ranking(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "List", "principal_id", principal.UserID).ErrorContext(r.Context(), "failed to compute rangliste", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]rankedUserDTO, 0, len(ranked))
	for _, entry := range ranked {
		payload = append(payload, rankedUserDTO{
			Rank:     entry.Rank,
			Username: entry.Username,
			Score:    entry.Score,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Export streams the Rangliste as an xlsx workbook. Administrator only.
func (h *RankingHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	if !principal.Role.CanManageUsers() {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	logger := h.log(r.Context(), "Export", "principal_id", principal.UserID)

	ranked, err := h.service.Ranking(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to compute rangliste", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	rows := make([]roster.RankedUser, 0, len(ranked))
	for _, entry := range ranked {
		rows = append(rows, roster.RankedUser{User: entry.RosterView(), Rank: entry.Rank})
	}

	var buf bytes.Buffer
	if err := export.WriteRangliste(&buf, rows); err != nil {
		logger.ErrorContext(r.Context(), "failed to render rangliste workbook", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rangliste exported", "rows", len(rows))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="rangliste.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.ErrorContext(r.Context(), "failed to stream rangliste workbook", "error", err)
	}
}

type rankedUserDTO struct {
	Rank     int    `json:"rang"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}
