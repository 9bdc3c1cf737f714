package sync

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/beekhof/shift-sync/internal/scraper"
	"github.com/beekhof/shift-sync/internal/syncerr"
)

// shiftLayout is the site's local wall-clock format. Fractional seconds are
// accepted by time.Parse without being spelled out.
const shiftLayout = "2006-01-02T15:04:05"

// ShiftDecision is the verdict for one scraped shift.
type ShiftDecision struct {
	Shift      scraper.Shift
	Start, End time.Time
	IsNew      bool // no calendar event covers the same instants
	InFuture   bool // ends after the run started
}

// ShouldInsert reports whether the shift needs a new calendar event.
func (d ShiftDecision) ShouldInsert() bool {
	return d.IsNew && d.InFuture
}

// EventDecision is the verdict for one existing calendar event.
type EventDecision struct {
	Event        *calendar.Event
	Start, End   time.Time
	ShouldDelete bool
}

// Plan holds every decision of one run, in input order.
type Plan struct {
	Shifts []ShiftDecision
	Events []EventDecision
}

// Inserts returns the shifts that need a calendar event.
func (p *Plan) Inserts() []ShiftDecision {
	var out []ShiftDecision
	for _, d := range p.Shifts {
		if d.ShouldInsert() {
			out = append(out, d)
		}
	}
	return out
}

// Deletes returns the events no shift accounts for.
func (p *Plan) Deletes() []EventDecision {
	var out []EventDecision
	for _, d := range p.Events {
		if d.ShouldDelete {
			out = append(out, d)
		}
	}
	return out
}

type instants struct {
	start, end int64
}

func instantsOf(start, end time.Time) instants {
	return instants{start: start.UnixNano(), end: end.UnixNano()}
}

// Reconcile compares shifts with calendar events. A shift and an event
// describe the same occurrence when both their start and end instants are
// equal; summaries and descriptions are not compared.
func Reconcile(shifts []scraper.Shift, events []*calendar.Event, now time.Time, loc *time.Location) (*Plan, error) {
	plan := &Plan{
		Shifts: make([]ShiftDecision, 0, len(shifts)),
		Events: make([]EventDecision, 0, len(events)),
	}

	eventKeys := make(map[instants]bool, len(events))
	for _, event := range events {
		start, err := ResolveEventTime(event.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("event %s start: %w", event.Id, err)
		}
		end, err := ResolveEventTime(event.End, loc)
		if err != nil {
			return nil, fmt.Errorf("event %s end: %w", event.Id, err)
		}
		eventKeys[instantsOf(start, end)] = true
		plan.Events = append(plan.Events, EventDecision{Event: event, Start: start, End: end})
	}

	shiftKeys := make(map[instants]bool, len(shifts))
	for i, shift := range shifts {
		start, err := ResolveShiftTime(shift.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("shift %d (%s) start: %w", i, shift.JobType, err)
		}
		end, err := ResolveShiftTime(shift.End, loc)
		if err != nil {
			return nil, fmt.Errorf("shift %d (%s) end: %w", i, shift.JobType, err)
		}
		key := instantsOf(start, end)
		shiftKeys[key] = true
		plan.Shifts = append(plan.Shifts, ShiftDecision{
			Shift:    shift,
			Start:    start,
			End:      end,
			IsNew:    !eventKeys[key],
			InFuture: end.After(now),
		})
	}

	for i := range plan.Events {
		d := &plan.Events[i]
		d.ShouldDelete = !shiftKeys[instantsOf(d.Start, d.End)]
	}

	return plan, nil
}

// ResolveShiftTime interprets a site timestamp as wall-clock time in loc.
// Timestamps carrying their own offset are honoured and converted to loc.
func ResolveShiftTime(ts string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(shiftLayout, ts, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unrecognized shift time %q", syncerr.ErrDataIntegrity, ts)
	}
	return t.In(loc), nil
}

// ResolveEventTime returns the instant of an event boundary. All-day
// boundaries resolve to midnight in loc.
func ResolveEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, fmt.Errorf("%w: missing event time", syncerr.ErrDataIntegrity)
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unparseable event time %q: %w", syncerr.ErrDataIntegrity, edt.DateTime, err)
		}
		return t, nil
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", edt.Date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unparseable event date %q: %w", syncerr.ErrDataIntegrity, edt.Date, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: event time has neither dateTime nor date", syncerr.ErrDataIntegrity)
}
