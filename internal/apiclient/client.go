// Package apiclient implements the Go client for the Vereinsverwaltung REST
// API together with the persisted session store.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/example/vereinsverwaltung/internal/roster"
)

// DefaultBaseURL is the development origin, overridable with VEREIN_API_URL
// or WithBaseURL.
const DefaultBaseURL = "http://localhost:8080"

const datumLayout = "2006-01-02"

// Client talks to the Vereinsverwaltung API. The zero value is not usable,
// construct it with NewClient.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API origin.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds a client against VEREIN_API_URL or the default origin.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if env := strings.TrimSpace(os.Getenv("VEREIN_API_URL")); env != "" {
		c.baseURL = strings.TrimRight(env, "/")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Termin mirrors the server's Termin payload with the date parsed.
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
}

// RosterView maps the Termin onto the view-model shape.
func (t Termin) RosterView() roster.Termin {
	return roster.Termin{
		ID:         t.ID,
		Titel:      t.Titel,
		Datum:      t.Datum,
		Anzahl:     t.Anzahl,
		Score:      t.Score,
		Teilnehmer: t.Teilnehmer,
	}
}

// RankedEntry is one Rangliste row.
type RankedEntry struct {
	Rank     int    `json:"rang"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// EnrollResult reports the outcome of an enrollment attempt. Conflicts are
// an expected outcome, not an error: Accepted is false and Reason carries
// the server's localized message.
type EnrollResult struct {
	Accepted bool
	Reason   string
}

// Login authenticates and returns the session to persist.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	payload := map[string]string{"username": username, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/login", payload, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Logout revokes the session on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Termine fetches all Termine. Entries with an unparseable date are dropped
// rather than failing the whole list.
func (c *Client) Termine(ctx context.Context) ([]Termin, error) {
	var dtos []terminPayload
	if err := c.do(ctx, http.MethodGet, "/termine", nil, &dtos); err != nil {
		return nil, err
	}

	termine := make([]Termin, 0, len(dtos))
	for _, dto := range dtos {
		termin, err := dto.toTermin()
		if err != nil {
			continue
		}
		termine = append(termine, termin)
	}
	return termine, nil
}

// Termin fetches a single Termin with its roster.
func (c *Client) Termin(ctx context.Context, terminID string) (Termin, error) {
	var dto terminPayload
	if err := c.do(ctx, http.MethodGet, "/termine/"+url.PathEscape(terminID), nil, &dto); err != nil {
		return Termin{}, err
	}
	return dto.toTermin()
}

// Enroll adds a Teilnehmer to the Termin. An empty username enrolls the
// acting user. Capacity and duplicate conflicts come back as a declined
// EnrollResult, all other failures as errors.
func (c *Client) Enroll(ctx context.Context, terminID, username string) (EnrollResult, error) {
	var payload any
	if strings.TrimSpace(username) != "" {
		payload = map[string]string{"username": username}
	}

	err := c.do(ctx, http.MethodPost, "/termine/"+url.PathEscape(terminID)+"/teilnehmer", payload, nil)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return EnrollResult{Accepted: false, Reason: conflict.Message}, nil
		}
		return EnrollResult{}, err
	}
	return EnrollResult{Accepted: true}, nil
}

// Unenroll removes a Teilnehmer from the Termin.
func (c *Client) Unenroll(ctx context.Context, terminID, username string) error {
	path := "/termine/" + url.PathEscape(terminID) + "/teilnehmer/" + url.PathEscape(username)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Rangliste fetches the score ranking.
func (c *Client) Rangliste(ctx context.Context) ([]RankedEntry, error) {
	var entries []RankedEntry
	if err := c.do(ctx, http.MethodGet, "/rangliste", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	target := c.baseURL + path

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("apiclient: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		// A success status with an undecodable body is a malformed response,
		// reported like a network failure.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{URL: target, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	return decodeErrorStatus(resp)
}

// decodeErrorStatus maps the server's error payload onto the client taxonomy.
// The "error" string is surfaced verbatim.
func decodeErrorStatus(resp *http.Response) error {
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	message := strings.TrimSpace(payload.Error)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: message}
	case http.StatusNotFound:
		return &NotFoundError{Message: message}
	case http.StatusConflict:
		return &ConflictError{Message: message, Err: conflictSentinel(message)}
	case http.StatusUnprocessableEntity:
		return &ValidationError{Message: message, Fields: payload.Fields}
	default:
		return &StatusError{StatusCode: resp.StatusCode, Message: message}
	}
}

func conflictSentinel(message string) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "bereits") && strings.Contains(lower, "angemeldet"):
		return ErrAlreadyEnrolled
	case strings.Contains(lower, "ausgebucht"):
		return ErrTerminFull
	case strings.Contains(lower, "keine anmeldung"):
		return ErrNotEnrolled
	default:
		return nil
	}
}

type terminPayload struct {
	ID                  string   `json:"id"`
	Titel               string   `json:"titel"`
	Datum               string   `json:"datum"`
	Beginn              string   `json:"beginn"`
	Ende                string   `json:"ende"`
	Beschreibung        string   `json:"beschreibung"`
	Anzahl              int      `json:"anzahl"`
	Score               int      `json:"score"`
	AnsprechpartnerName string   `json:"ansprechpartner_name"`
	AnsprechpartnerMail string   `json:"ansprechpartner_mail"`
	Deadline            string   `json:"deadline"`
	Teilnehmer          []string `json:"teilnehmer"`
}

func (p terminPayload) toTermin() (Termin, error) {
	termin := Termin{
		ID:                  p.ID,
		Titel:               p.Titel,
		Beginn:              p.Beginn,
		Ende:                p.Ende,
		Beschreibung:        p.Beschreibung,
		Anzahl:              p.Anzahl,
		Score:               p.Score,
		AnsprechpartnerName: p.AnsprechpartnerName,
		AnsprechpartnerMail: p.AnsprechpartnerMail,
		Teilnehmer:          p.Teilnehmer,
	}

	if p.Datum != "" {
		datum, err := time.Parse(datumLayout, p.Datum)
		if err != nil {
			return Termin{}, fmt.Errorf("apiclient: parse datum %q: %w", p.Datum, err)
		}
		termin.Datum = datum
	}
	if p.Deadline != "" {
		deadline, err := time.Parse(datumLayout, p.Deadline)
		if err != nil {
			return Termin{}, fmt.Errorf("apiclient: parse deadline %q: %w", p.Deadline, err)
		}
		termin.Deadline = &deadline
	}
	return termin, nil
}
