// Command vereinctl is the terminal client for the Vereinsverwaltung API.
//
// Subcommands:
//
//	login -user <name> -passwort <passwort>
//	logout
//	termine [-tag JJJJ-MM-TT] [-alle]
//	anmelden <termin-id>
//	naechster
//	rangliste
//	uebersicht
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/example/vereinsverwaltung/internal/apiclient"
	"github.com/example/vereinsverwaltung/internal/roster"
)

const datumLayout = "2006-01-02"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Fehler:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errors.New("kein Befehl angegeben")
	}

	store, err := apiclient.NewSessionStore()
	if err != nil {
		return err
	}

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return runLogin(ctx, rest, store, stdout)
	case "logout":
		return runLogout(ctx, store, stdout)
	case "termine":
		return runTermine(ctx, rest, store, stdout)
	case "anmelden":
		return runAnmelden(ctx, rest, store, stdout)
	case "naechster":
		return runNaechster(ctx, store, stdout)
	case "rangliste":
		return runRangliste(ctx, store, stdout)
	case "uebersicht":
		return runUebersicht(ctx, store, stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unbekannter Befehl %q", command)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Verwendung: vereinctl <befehl> [optionen]")
	fmt.Fprintln(w, "Befehle: login, logout, termine, anmelden, naechster, rangliste, uebersicht")
}

func newClient(store *apiclient.SessionStore) (*apiclient.Client, apiclient.Session, error) {
	session, _, err := store.Load()
	if err != nil {
		return nil, apiclient.Session{}, err
	}
	return apiclient.NewClient(apiclient.WithToken(session.Token)), session, nil
}

func runLogin(ctx context.Context, args []string, store *apiclient.SessionStore, stdout io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("user", "", "Benutzername")
	passwort := fs.String("passwort", "", "Passwort")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || *passwort == "" {
		return errors.New("login benötigt -user und -passwort")
	}

	client := apiclient.NewClient()
	session, err := client.Login(ctx, *user, *passwort)
	if err != nil {
		return err
	}
	if err := store.Set(session); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Angemeldet als %s (%s), Score %d\n", session.Username, session.Role, session.Score)
	return nil
}

func runLogout(ctx context.Context, store *apiclient.SessionStore, stdout io.Writer) error {
	client, session, err := newClient(store)
	if err != nil {
		return err
	}

	if session.Token != "" {
		// The local session is cleared even when the server-side revocation
		// fails; a dead server must not pin a stale token.
		if err := client.Logout(ctx); err != nil {
			fmt.Fprintln(stdout, "Hinweis: Abmeldung am Server fehlgeschlagen:", err)
		}
	}
	if err := store.Clear(); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Abgemeldet.")
	return nil
}

func runTermine(ctx context.Context, args []string, store *apiclient.SessionStore, stdout io.Writer) error {
	fs := flag.NewFlagSet("termine", flag.ContinueOnError)
	tag := fs.String("tag", "", "nur Termine an diesem Tag (JJJJ-MM-TT)")
	alle := fs.Bool("alle", false, "auch vergangene Termine anzeigen")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, session, err := newClient(store)
	if err != nil {
		return err
	}

	termine, err := client.Termine(ctx)
	if err != nil {
		return err
	}

	views := make([]roster.Termin, 0, len(termine))
	for _, t := range termine {
		views = append(views, t.RosterView())
	}

	if !*alle {
		views = roster.FilterUpcoming(views, time.Now())
	}
	if *tag != "" {
		day, err := time.Parse(datumLayout, *tag)
		if err != nil {
			return fmt.Errorf("ungültiger Tag %q, erwartet JJJJ-MM-TT", *tag)
		}
		views = roster.FilterByDay(views, day)
	}

	renderTermine(stdout, views, session.Username)
	return nil
}

func renderTermine(w io.Writer, termine []roster.Termin, username string) {
	if len(termine) == 0 {
		fmt.Fprintln(w, "Keine Termine gefunden.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATUM\tTITEL\tPLÄTZE\tSCORE\tSTATUS")
	for _, t := range termine {
		capacity := roster.CapacityState(t)
		plaetze := fmt.Sprintf("%d/%d", capacity.Enrolled, capacity.Limit)
		status := "offen"
		if capacity.Full {
			status = "ausgebucht"
		}
		if username != "" && roster.IsEnrolled(t, username) {
			status = "angemeldet"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", t.ID, t.Datum.Format(datumLayout), t.Titel, plaetze, t.Score, status)
	}
	_ = tw.Flush()
}

func runAnmelden(ctx context.Context, args []string, store *apiclient.SessionStore, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("anmelden benötigt genau eine Termin-ID")
	}
	terminID := args[0]

	client, session, err := newClient(store)
	if err != nil {
		return err
	}
	if session.Token == "" {
		return errors.New("nicht angemeldet, bitte zuerst vereinctl login ausführen")
	}

	result, err := client.Enroll(ctx, terminID, "")
	if err != nil {
		return err
	}
	if !result.Accepted {
		fmt.Fprintln(stdout, "Anmeldung abgelehnt:", result.Reason)
		return nil
	}

	// Re-fetch so the shown roster reflects the authoritative state.
	termin, err := client.Termin(ctx, terminID)
	if err != nil {
		fmt.Fprintln(stdout, "Angemeldet.")
		return nil
	}
	capacity := roster.CapacityState(termin.RosterView())
	fmt.Fprintf(stdout, "Angemeldet für %q am %s (%d/%d Plätze belegt).\n",
		termin.Titel, termin.Datum.Format(datumLayout), capacity.Enrolled, capacity.Limit)
	return nil
}

func runNaechster(ctx context.Context, store *apiclient.SessionStore, stdout io.Writer) error {
	client, session, err := newClient(store)
	if err != nil {
		return err
	}
	if session.Username == "" {
		return errors.New("nicht angemeldet, bitte zuerst vereinctl login ausführen")
	}

	termine, err := client.Termine(ctx)
	if err != nil {
		return err
	}

	views := make([]roster.Termin, 0, len(termine))
	for _, t := range termine {
		views = append(views, t.RosterView())
	}
	upcoming := roster.FilterUpcoming(views, time.Now())

	next := roster.OwnNextEvent(upcoming, session.Username)
	if next == nil {
		fmt.Fprintln(stdout, "Keine eigene Anmeldung für kommende Termine.")
		return nil
	}
	fmt.Fprintf(stdout, "Nächster Termin: %s am %s\n", next.Titel, next.Datum.Format(datumLayout))
	return nil
}

func runRangliste(ctx context.Context, store *apiclient.SessionStore, stdout io.Writer) error {
	client, _, err := newClient(store)
	if err != nil {
		return err
	}

	entries, err := client.Rangliste(ctx)
	if err != nil {
		return err
	}
	renderRangliste(stdout, entries)
	return nil
}

func renderRangliste(w io.Writer, entries []apiclient.RankedEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Die Rangliste ist leer.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLATZ\tBENUTZER\tSCORE")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", entry.Rank, entry.Username, entry.Score)
	}
	_ = tw.Flush()
}

// runUebersicht renders Termine and Rangliste from two independent fetches.
// A failed half reports its error without suppressing the other half.
func runUebersicht(ctx context.Context, store *apiclient.SessionStore, stdout, stderr io.Writer) error {
	client, session, err := newClient(store)
	if err != nil {
		return err
	}

	failures := 0

	fmt.Fprintln(stdout, "== Termine ==")
	if termine, err := client.Termine(ctx); err != nil {
		failures++
		fmt.Fprintln(stderr, "Termine konnten nicht geladen werden:", err)
	} else {
		views := make([]roster.Termin, 0, len(termine))
		for _, t := range termine {
			views = append(views, t.RosterView())
		}
		renderTermine(stdout, roster.FilterUpcoming(views, time.Now()), session.Username)
	}

	fmt.Fprintln(stdout, "== Rangliste ==")
	if entries, err := client.Rangliste(ctx); err != nil {
		failures++
		fmt.Fprintln(stderr, "Rangliste konnte nicht geladen werden:", err)
	} else {
		renderRangliste(stdout, entries)
	}

	if failures == 2 {
		return errors.New("weder Termine noch Rangliste konnten geladen werden")
	}
	return nil
}
