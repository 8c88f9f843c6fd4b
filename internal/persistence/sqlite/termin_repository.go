package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/vereinsverwaltung/internal/persistence"
	"github.com/example/vereinsverwaltung/internal/roster"
)

// TerminRepository implements persistence.TerminRepository on SQLite.
type TerminRepository struct {
	pool *ConnectionPool
}

// NewTerminRepository creates a new SQLite Termin repository.
func NewTerminRepository(pool *ConnectionPool) *TerminRepository {
	return &TerminRepository{pool: pool}
}

const dateLayout = "2006-01-02"

const terminColumns = `id, titel, datum, beginn, ende, beschreibung, anzahl, score,
	ansprechpartner_name, ansprechpartner_mail, deadline, created_at, updated_at`

// CreateTermin inserts a new Termin.
func (r *TerminRepository) CreateTermin(ctx context.Context, termin persistence.Termin) error {
	if termin.ID == "" {
		return fmt.Errorf("sqlite: termin id is required")
	}

	var deadline any
	if termin.Deadline != nil {
		deadline = termin.Deadline.Format(dateLayout)
	}

	query := `
		INSERT INTO termine (id, titel, datum, beginn, ende, beschreibung, anzahl, score,
			ansprechpartner_name, ansprechpartner_mail, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		termin.ID,
		termin.Titel,
		termin.Datum.Format(dateLayout),
		termin.Beginn,
		termin.Ende,
		termin.Beschreibung,
		termin.Anzahl,
		termin.Score,
		termin.AnsprechpartnerName,
		termin.AnsprechpartnerMail,
		deadline,
		termin.CreatedAt.UTC().Format(time.RFC3339),
		termin.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.ErrDuplicate
		}
		return fmt.Errorf("sqlite: create termin: %w", err)
	}
	return nil
}

// UpdateTermin updates an existing Termin. The roster is untouched.
func (r *TerminRepository) UpdateTermin(ctx context.Context, termin persistence.Termin) error {
	var deadline any
	if termin.Deadline != nil {
		deadline = termin.Deadline.Format(dateLayout)
	}

	query := `
		UPDATE termine
		SET titel = ?, datum = ?, beginn = ?, ende = ?, beschreibung = ?, anzahl = ?, score = ?,
			ansprechpartner_name = ?, ansprechpartner_mail = ?, deadline = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		termin.Titel,
		termin.Datum.Format(dateLayout),
		termin.Beginn,
		termin.Ende,
		termin.Beschreibung,
		termin.Anzahl,
		termin.Score,
		termin.AnsprechpartnerName,
		termin.AnsprechpartnerMail,
		deadline,
		termin.UpdatedAt.UTC().Format(time.RFC3339),
		termin.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update termin: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetTermin retrieves a Termin with its roster.
func (r *TerminRepository) GetTermin(ctx context.Context, id string) (persistence.Termin, error) {
	if id == "" {
		return persistence.Termin{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+terminColumns+` FROM termine WHERE id = ?`, id)
	termin, err := scanTermin(row)
	if err != nil {
		return persistence.Termin{}, err
	}

	termin.Teilnehmer, err = r.loadTeilnehmer(ctx, id)
	if err != nil {
		return persistence.Termin{}, err
	}
	return termin, nil
}

// ListTermine returns all Termine with rosters, ordered ascending by date.
func (r *TerminRepository) ListTermine(ctx context.Context) ([]persistence.Termin, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT `+terminColumns+` FROM termine ORDER BY datum, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list termine: %w", err)
	}
	defer rows.Close()

	var termine []persistence.Termin
	for rows.Next() {
		termin, err := scanTermin(rows)
		if err != nil {
			return nil, err
		}
		termine = append(termine, termin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate termine: %w", err)
	}

	for i := range termine {
		termine[i].Teilnehmer, err = r.loadTeilnehmer(ctx, termine[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return termine, nil
}

// DeleteTermin removes a Termin; the roster cascades.
func (r *TerminRepository) DeleteTermin(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM termine WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete termin: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// EnrollTeilnehmer appends username to the roster in a single transaction:
// existence check, duplicate check, capacity guard, insert, score award.
// The username is stored as submitted; uniqueness uses the normalized form.
func (r *TerminRepository) EnrollTeilnehmer(ctx context.Context, terminID, username string, overrideCapacity bool) error {
	norm := roster.Normalize(username)
	if norm == "" {
		return fmt.Errorf("sqlite: username is required")
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var anzahl, score, enrolled int
		err := tx.QueryRowContext(ctx,
			`SELECT anzahl, score, (SELECT COUNT(*) FROM teilnehmer WHERE termin_id = ?) FROM termine WHERE id = ?`,
			terminID, terminID,
		).Scan(&anzahl, &score, &enrolled)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return fmt.Errorf("sqlite: lock termin: %w", err)
		}

		var duplicate int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM teilnehmer WHERE termin_id = ? AND username_norm = ?`,
			terminID, norm,
		).Scan(&duplicate)
		if err != nil {
			return fmt.Errorf("sqlite: duplicate check: %w", err)
		}
		if duplicate > 0 {
			return persistence.ErrAlreadyEnrolled
		}

		if !overrideCapacity && enrolled >= anzahl {
			return persistence.ErrTerminFull
		}

		// The awarded value is kept on the row so a later score edit on the
		// Termin cannot change what an unenrollment withdraws.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO teilnehmer (termin_id, username, username_norm, score_awarded, created_at) VALUES (?, ?, ?, ?, ?)`,
			terminID, username, norm, score, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.ErrAlreadyEnrolled
			}
			return fmt.Errorf("sqlite: insert teilnehmer: %w", err)
		}

		// Award the participation score to a matching account, when one exists.
		if score != 0 {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET score = score + ? WHERE username_norm = ?`, score, norm)
			if err != nil {
				return fmt.Errorf("sqlite: award score: %w", err)
			}
		}
		return nil
	})
}

// RemoveTeilnehmer removes username from the roster and withdraws the score
// amount that was awarded at enrollment time, in the same transaction. Score
// edits on the Termin between enroll and unenroll do not change the refund.
func (r *TerminRepository) RemoveTeilnehmer(ctx context.Context, terminID, username string) error {
	norm := roster.Normalize(username)
	if norm == "" {
		return persistence.ErrNotEnrolled
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM termine WHERE id = ?`, terminID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: load termin: %w", err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}

		var awarded int
		err = tx.QueryRowContext(ctx,
			`SELECT score_awarded FROM teilnehmer WHERE termin_id = ? AND username_norm = ?`,
			terminID, norm,
		).Scan(&awarded)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotEnrolled
			}
			return fmt.Errorf("sqlite: load teilnehmer: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM teilnehmer WHERE termin_id = ? AND username_norm = ?`, terminID, norm)
		if err != nil {
			return fmt.Errorf("sqlite: delete teilnehmer: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotEnrolled
		}

		if awarded != 0 {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET score = MAX(score - ?, 0) WHERE username_norm = ?`, awarded, norm)
			if err != nil {
				return fmt.Errorf("sqlite: withdraw score: %w", err)
			}
		}
		return nil
	})
}

func (r *TerminRepository) loadTeilnehmer(ctx context.Context, terminID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT username FROM teilnehmer WHERE termin_id = ? ORDER BY created_at, username_norm`, terminID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load teilnehmer: %w", err)
	}
	defer rows.Close()

	var teilnehmer []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("sqlite: scan teilnehmer: %w", err)
		}
		teilnehmer = append(teilnehmer, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate teilnehmer: %w", err)
	}
	return teilnehmer, nil
}

func scanTermin(row rowScanner) (persistence.Termin, error) {
	var termin persistence.Termin
	var datum, createdAt, updatedAt string
	var deadline sql.NullString

	err := row.Scan(
		&termin.ID,
		&termin.Titel,
		&datum,
		&termin.Beginn,
		&termin.Ende,
		&termin.Beschreibung,
		&termin.Anzahl,
		&termin.Score,
		&termin.AnsprechpartnerName,
		&termin.AnsprechpartnerMail,
		&deadline,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Termin{}, persistence.ErrNotFound
		}
		return persistence.Termin{}, fmt.Errorf("sqlite: scan termin: %w", err)
	}

	if termin.Datum, err = time.Parse(dateLayout, datum); err != nil {
		return persistence.Termin{}, fmt.Errorf("sqlite: parse datum: %w", err)
	}
	if deadline.Valid && deadline.String != "" {
		parsed, err := time.Parse(dateLayout, deadline.String)
		if err != nil {
			return persistence.Termin{}, fmt.Errorf("sqlite: parse deadline: %w", err)
		}
		termin.Deadline = &parsed
	}
	if termin.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Termin{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if termin.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Termin{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return termin, nil
}
