// Package roster derives every view the Vereinsverwaltung UI needs from the
// raw Termin and user collections: upcoming/day filters, per-Termin capacity
// state, enrollment eligibility, and the score ranking. All functions are
// pure; callers own mutation and re-fetching.
package roster

import (
	"sort"
	"strings"
	"time"
)

// Termin is the minimal event view the roster calculations operate on.
type Termin struct {
	ID         string
	Titel      string
	Datum      time.Time
	Anzahl     int
	Score      int
	Teilnehmer []string
}

// Capacity summarises the enrollment state of a single Termin.
type Capacity struct {
	Enrolled int
	Limit    int
	Full     bool
}

// Normalize canonicalises a username for membership comparison. Storage keeps
// usernames as submitted; comparison is always trimmed and case-insensitive.
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Day truncates an instant to midnight, discarding the time of day. The
// location of t is preserved so that day comparisons stay local.
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// FilterUpcoming returns the Termine occurring on or after the reference day,
// ordered ascending by date. Termine without a usable date are dropped.
// Equal dates keep their input order.
func FilterUpcoming(termine []Termin, today time.Time) []Termin {
	reference := Day(today)
	out := make([]Termin, 0, len(termine))
	for _, t := range termine {
		if t.Datum.IsZero() {
			continue
		}
		if Day(t.Datum).Before(reference) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Day(out[i].Datum).Before(Day(out[j].Datum))
	})
	return out
}

// FilterByDay narrows termine to the exact calendar day. A zero day is a
// passthrough, mirroring "no day selected" in the calendar view.
func FilterByDay(termine []Termin, day time.Time) []Termin {
	if day.IsZero() {
		return termine
	}
	selected := Day(day)
	out := make([]Termin, 0, len(termine))
	for _, t := range termine {
		if t.Datum.IsZero() {
			continue
		}
		if Day(t.Datum).Equal(selected) {
			out = append(out, t)
		}
	}
	return out
}

// CapacityState computes the enrollment count against the Termin capacity.
// A capacity of zero or less counts as always full.
func CapacityState(t Termin) Capacity {
	enrolled := len(t.Teilnehmer)
	return Capacity{
		Enrolled: enrolled,
		Limit:    t.Anzahl,
		Full:     t.Anzahl <= 0 || enrolled >= t.Anzahl,
	}
}

// IsEnrolled reports whether username appears in the Termin roster. The test
// is trimmed and case-insensitive on both sides; an empty username or absent
// roster is never enrolled.
func IsEnrolled(t Termin, username string) bool {
	needle := Normalize(username)
	if needle == "" {
		return false
	}
	for _, member := range t.Teilnehmer {
		if Normalize(member) == needle {
			return true
		}
	}
	return false
}

// CanEnroll reports whether username may join the Termin: authenticated, not
// already a member, and the Termin is not full. The result is advisory; the
// backend re-checks under a transaction and its verdict wins.
func CanEnroll(t Termin, username string) bool {
	if Normalize(username) == "" {
		return false
	}
	if IsEnrolled(t, username) {
		return false
	}
	return !CapacityState(t).Full
}

// OwnNextEvent returns the earliest Termin the user is enrolled in, or nil
// when there is none.
func OwnNextEvent(termine []Termin, username string) *Termin {
	var next *Termin
	for i := range termine {
		t := termine[i]
		if t.Datum.IsZero() || !IsEnrolled(t, username) {
			continue
		}
		if next == nil || Day(t.Datum).Before(Day(next.Datum)) {
			next = &termine[i]
		}
	}
	if next == nil {
		return nil
	}
	copied := *next
	return &copied
}
