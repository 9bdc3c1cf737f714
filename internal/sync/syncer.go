package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"google.golang.org/api/calendar/v3"

	calclient "github.com/beekhof/shift-sync/internal/calendar"
	"github.com/beekhof/shift-sync/internal/config"
	"github.com/beekhof/shift-sync/internal/scraper"
	"github.com/beekhof/shift-sync/internal/syncerr"
)

// ShiftSource produces the currently published shifts.
type ShiftSource interface {
	Shifts(ctx context.Context) ([]scraper.Shift, error)
}

// Result summarises one sync run.
type Result struct {
	CalendarID string
	Events     int // upcoming events retrieved
	Shifts     int // shifts downloaded
	Inserted   int
	Deleted    int
	Failed     int
}

// Syncer brings the destination calendar in line with the published shifts.
type Syncer struct {
	gateway  calclient.Gateway
	source   ShiftSource
	config   *config.Config
	secrets  *config.Secrets
	template *calendar.Event
	loc      *time.Location
	now      func() time.Time

	// DryRun logs the plan without changing the calendar.
	DryRun bool
	// Verbose logs every shift and event decision.
	Verbose bool
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(gateway calclient.Gateway, source ShiftSource, cfg *config.Config, secrets *config.Secrets, template *calendar.Event) (*Syncer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Syncer{
		gateway:  gateway,
		source:   source,
		config:   cfg,
		secrets:  secrets,
		template: template,
		loc:      loc,
		now:      time.Now,
	}, nil
}

// resolveCalendar returns the configured calendar id, or looks the
// calendar up by its exact display name.
func (s *Syncer) resolveCalendar(ctx context.Context) (string, error) {
	ref := s.secrets.Calendar
	if ref.ID != "" {
		return ref.ID, nil
	}

	calendars, err := s.gateway.ListCalendars(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to list calendars: %w", syncerr.ErrGateway, err)
	}
	for _, entry := range calendars {
		if entry.Summary == ref.Name {
			log.Printf("Using calendar %q (%s)", ref.Name, entry.Id)
			return entry.Id, nil
		}
	}
	return "", fmt.Errorf("%w: no calendar named %q", syncerr.ErrConfiguration, ref.Name)
}

// Sync performs one run: list upcoming events, scrape shifts, and apply
// the resulting inserts and deletes.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	log.Println("Starting sync...")
	now := s.now().In(s.loc)

	calendarID, err := s.resolveCalendar(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{CalendarID: calendarID}

	events, err := s.gateway.ListUpcomingEvents(ctx, calendarID, now, s.config.MaxEvents)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list upcoming events: %w", syncerr.ErrGateway, err)
	}
	result.Events = len(events)
	log.Printf("Retrieved %d upcoming events", len(events))
	for _, event := range events {
		log.Printf("  %s %s (%s)", eventStart(event), event.Summary, event.Id)
	}

	shifts, err := s.source.Shifts(ctx)
	if err != nil {
		return nil, err
	}
	result.Shifts = len(shifts)
	for _, shift := range shifts {
		log.Printf("  %s - %s %s", shift.Start, shift.End, shift.JobType)
	}

	plan, err := Reconcile(shifts, events, now, s.loc)
	if err != nil {
		return nil, err
	}
	if s.Verbose {
		s.logPlan(plan)
	}

	if s.config.ICSExportPath != "" {
		s.exportICS(plan, now)
	}

	inserts, deletes := plan.Inserts(), plan.Deletes()
	log.Printf("Plan: %d insert(s), %d delete(s)", len(inserts), len(deletes))
	if s.DryRun {
		log.Println("Dry run, calendar left unchanged.")
		return result, nil
	}

	var failures []error
	for _, d := range inserts {
		event, err := BuildEventPayload(s.template, d, s.config.TimeZone)
		if err == nil {
			event, err = s.gateway.InsertEvent(ctx, calendarID, event)
		}
		if err != nil {
			log.Printf("Warning: failed to insert shift %s (%s): %v", d.Shift.Start, d.Shift.JobType, err)
			failures = append(failures, fmt.Errorf("insert shift %s: %w", d.Shift.Start, err))
			continue
		}
		result.Inserted++
		log.Printf("Inserted event %s (summary: %v, start: %s)", event.Id, event.Summary, d.Shift.Start)
	}

	for _, d := range deletes {
		if err := s.gateway.DeleteEvent(ctx, calendarID, d.Event.Id); err != nil {
			log.Printf("Warning: failed to delete event %s (summary: %s): %v", d.Event.Id, d.Event.Summary, err)
			failures = append(failures, fmt.Errorf("delete event %s: %w", d.Event.Id, err))
			continue
		}
		result.Deleted++
		log.Printf("Deleted event %s (summary: %s)", d.Event.Id, d.Event.Summary)
	}

	result.Failed = len(failures)
	if len(failures) > 0 {
		return result, fmt.Errorf("%w: %d calendar change(s) failed: %w", syncerr.ErrGateway, len(failures), errors.Join(failures...))
	}

	log.Printf("Sync complete: %d inserted, %d deleted.", result.Inserted, result.Deleted)
	return result, nil
}

func (s *Syncer) logPlan(plan *Plan) {
	for _, d := range plan.Shifts {
		log.Printf("DEBUG: shift %s %s new=%t future=%t insert=%t", d.Start.Format(time.RFC3339), d.Shift.JobType, d.IsNew, d.InFuture, d.ShouldInsert())
	}
	for _, d := range plan.Events {
		log.Printf("DEBUG: event %s %s delete=%t", d.Event.Id, d.Start.Format(time.RFC3339), d.ShouldDelete)
	}
}

// exportICS writes every scraped shift to the configured iCalendar file.
// Export problems never fail the run.
func (s *Syncer) exportICS(plan *Plan, now time.Time) {
	events := make([]*calendar.Event, 0, len(plan.Shifts))
	for _, d := range plan.Shifts {
		event, err := BuildEventPayload(s.template, d, s.config.TimeZone)
		if err != nil {
			log.Printf("Warning: failed to render shift %s for export: %v", d.Shift.Start, err)
			continue
		}
		events = append(events, event)
	}
	if err := calclient.WriteICSFile(s.config.ICSExportPath, events, now); err != nil {
		log.Printf("Warning: failed to export shifts to %s: %v", s.config.ICSExportPath, err)
		return
	}
	log.Printf("Exported %d shift(s) to %s", len(events), s.config.ICSExportPath)
}

func eventStart(event *calendar.Event) string {
	if event.Start == nil {
		return ""
	}
	if event.Start.DateTime != "" {
		return event.Start.DateTime
	}
	return event.Start.Date
}
