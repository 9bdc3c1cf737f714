package sync

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"google.golang.org/api/calendar/v3"

	"github.com/beekhof/shift-sync/internal/scraper"
	"github.com/beekhof/shift-sync/internal/syncerr"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func timedEvent(id, start, end string) *calendar.Event {
	return &calendar.Event{
		Id:      id,
		Summary: "Shift " + id,
		Start:   &calendar.EventDateTime{DateTime: start},
		End:     &calendar.EventDateTime{DateTime: end},
	}
}

func TestReconcile_SetDifference(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)

	shiftA := scraper.Shift{JobType: "Barista", Start: "2024-01-10T09:00:00", End: "2024-01-10T17:00:00"}
	shiftB := scraper.Shift{JobType: "Barista", Start: "2024-01-11T09:00:00", End: "2024-01-11T17:00:00"}
	// Same instants as shiftA, written in UTC.
	eventA := timedEvent("evA", "2024-01-10T17:00:00Z", "2024-01-11T01:00:00Z")

	plan, err := Reconcile([]scraper.Shift{shiftA, shiftB}, []*calendar.Event{eventA}, now, loc)
	if err != nil {
		t.Fatalf("Reconcile() returned an error: %v", err)
	}

	inserts := plan.Inserts()
	if len(inserts) != 1 || inserts[0].Shift.Start != shiftB.Start {
		t.Errorf("Expected only shift B to be inserted, got %+v", inserts)
	}
	if plan.Shifts[0].IsNew {
		t.Error("Expected shift A to match the existing event")
	}
	if len(plan.Deletes()) != 0 {
		t.Errorf("Expected no deletes, got %+v", plan.Deletes())
	}
}

func TestReconcile_DeletesUnmatchedEvent(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)

	shift := scraper.Shift{JobType: "Barista", Start: "2024-01-10T09:00:00", End: "2024-01-10T17:00:00"}
	kept := timedEvent("keep", "2024-01-10T09:00:00-08:00", "2024-01-10T17:00:00-08:00")
	stale := timedEvent("stale", "2024-01-12T09:00:00-08:00", "2024-01-12T17:00:00-08:00")

	plan, err := Reconcile([]scraper.Shift{shift}, []*calendar.Event{kept, stale}, now, loc)
	if err != nil {
		t.Fatalf("Reconcile() returned an error: %v", err)
	}

	deletes := plan.Deletes()
	if len(deletes) != 1 || deletes[0].Event.Id != "stale" {
		t.Errorf("Expected only the stale event to be deleted, got %+v", deletes)
	}
	if len(plan.Inserts()) != 0 {
		t.Errorf("Expected no inserts, got %+v", plan.Inserts())
	}
}

func TestReconcile_SameStartDifferentEnd(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)

	shift := scraper.Shift{JobType: "Barista", Start: "2024-01-10T09:00:00", End: "2024-01-10T15:00:00"}
	event := timedEvent("old", "2024-01-10T09:00:00-08:00", "2024-01-10T17:00:00-08:00")

	plan, err := Reconcile([]scraper.Shift{shift}, []*calendar.Event{event}, now, loc)
	if err != nil {
		t.Fatalf("Reconcile() returned an error: %v", err)
	}
	if len(plan.Inserts()) != 1 || len(plan.Deletes()) != 1 {
		t.Errorf("Expected a changed end to insert and delete, got %d inserts and %d deletes", len(plan.Inserts()), len(plan.Deletes()))
	}
}

func TestReconcile_PastShiftNotInserted(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	now := time.Date(2024, 1, 10, 18, 0, 0, 0, loc)

	shift := scraper.Shift{JobType: "Barista", Start: "2024-01-10T09:00:00", End: "2024-01-10T17:00:00"}

	plan, err := Reconcile([]scraper.Shift{shift}, nil, now, loc)
	if err != nil {
		t.Fatalf("Reconcile() returned an error: %v", err)
	}

	d := plan.Shifts[0]
	if !d.IsNew || d.InFuture || d.ShouldInsert() {
		t.Errorf("Expected a new but past shift to be skipped, got %+v", d)
	}
}

func TestReconcile_ShiftEndingNowIsPast(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	now := time.Date(2024, 1, 10, 17, 0, 0, 0, loc)

	shift := scraper.Shift{JobType: "Barista", Start: "2024-01-10T09:00:00", End: "2024-01-10T17:00:00"}

	plan, err := Reconcile([]scraper.Shift{shift}, nil, now, loc)
	if err != nil {
		t.Fatalf("Reconcile() returned an error: %v", err)
	}
	if plan.Shifts[0].InFuture {
		t.Error("Expected a shift ending exactly now not to be in the future")
	}
}

func TestReconcile_AllDayEventNeverMatches(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)

	allDay := &calendar.Event{
		Id:    "holiday",
		Start: &calendar.EventDateTime{Date: "2024-01-10"},
		End:   &calendar.EventDateTime{Date: "2024-01-11"},
	}

	plan, err := Reconcile(nil, []*calendar.Event{allDay}, now, loc)
	if err != nil {
		t.Fatalf("Reconcile() returned an error: %v", err)
	}
	d := plan.Events[0]
	if !d.Start.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, loc)) {
		t.Errorf("Expected all-day start at local midnight, got %v", d.Start)
	}
	if !d.ShouldDelete {
		t.Error("Expected the unmatched all-day event to be deleted")
	}
}

func TestReconcile_UnparseableShift(t *testing.T) {
	loc := mustLocation(t, "UTC")
	shift := scraper.Shift{JobType: "Barista", Start: "next Tuesday", End: "2024-01-10T17:00:00"}

	_, err := Reconcile([]scraper.Shift{shift}, nil, time.Now(), loc)
	if !errors.Is(err, syncerr.ErrDataIntegrity) {
		t.Fatalf("Expected ErrDataIntegrity, got %v", err)
	}
}

func TestReconcile_EventWithoutTimes(t *testing.T) {
	loc := mustLocation(t, "UTC")
	event := &calendar.Event{Id: "broken", Start: &calendar.EventDateTime{}, End: &calendar.EventDateTime{}}

	_, err := Reconcile(nil, []*calendar.Event{event}, time.Now(), loc)
	if !errors.Is(err, syncerr.ErrDataIntegrity) {
		t.Fatalf("Expected ErrDataIntegrity, got %v", err)
	}
}

func TestResolveShiftTime_Layouts(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	want := time.Date(2024, 1, 10, 9, 0, 0, 0, loc)

	for _, ts := range []string{
		"2024-01-10T09:00:00",
		"2024-01-10T09:00:00.000",
		"2024-01-10T09:00:00-08:00",
		"2024-01-10T17:00:00Z",
	} {
		got, err := ResolveShiftTime(ts, loc)
		if err != nil {
			t.Errorf("ResolveShiftTime(%q) returned an error: %v", ts, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ResolveShiftTime(%q) = %v, want %v", ts, got, want)
		}
		if got.Location() != loc {
			t.Errorf("ResolveShiftTime(%q) location = %v, want %v", ts, got.Location(), loc)
		}
	}
}

func TestBuildEventPayload(t *testing.T) {
	loc := mustLocation(t, "America/Los_Angeles")
	template := &calendar.Event{
		Summary:     "Work: [job_type]",
		Description: "[job_type]\n[details]",
		ColorId:     "5",
		Reminders:   &calendar.EventReminders{UseDefault: true},
	}
	d := ShiftDecision{
		Shift: scraper.Shift{JobType: "Barista", Details: "Work: 09:00:00 - 17:00:00"},
		Start: time.Date(2024, 1, 10, 9, 0, 0, 0, loc),
		End:   time.Date(2024, 1, 10, 17, 0, 0, 0, loc),
	}

	event, err := BuildEventPayload(template, d, "America/Los_Angeles")
	if err != nil {
		t.Fatalf("BuildEventPayload() returned an error: %v", err)
	}

	if event.Summary != "Work: Barista" {
		t.Errorf("Expected summary 'Work: Barista', got %q", event.Summary)
	}
	if event.Description != "Barista\nWork: 09:00:00 - 17:00:00" {
		t.Errorf("Unexpected description %q", event.Description)
	}
	if event.Start.DateTime != "2024-01-10T09:00:00-08:00" || event.Start.TimeZone != "America/Los_Angeles" {
		t.Errorf("Unexpected start %+v", event.Start)
	}
	if event.End.DateTime != "2024-01-10T17:00:00-08:00" {
		t.Errorf("Unexpected end %+v", event.End)
	}
	if event.ColorId != "5" || event.Reminders == nil || !event.Reminders.UseDefault {
		t.Errorf("Expected template fields to be carried over, got %+v", event)
	}

	if template.Summary != "Work: [job_type]" || template.Start != nil {
		t.Errorf("Template was mutated: %+v", template)
	}
	event.Reminders.UseDefault = false
	if !template.Reminders.UseDefault {
		t.Error("Expected the payload not to share nested values with the template")
	}
}
