package calendar

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/emersion/go-ical"
	"google.golang.org/api/calendar/v3"
)

const icsProductID = "-//Shift Sync//EN"

// WriteICS encodes timed events as an iCalendar document. The UID of each
// VEVENT is derived from its start and end instants, so re-exporting the same
// schedule yields the same UIDs.
func WriteICS(w io.Writer, events []*calendar.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)

	for _, event := range events {
		vevent, err := toVEvent(event, stamp)
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode iCalendar: %w", err)
	}
	return nil
}

// WriteICSFile writes the events to path, replacing any previous export.
func WriteICSFile(path string, events []*calendar.Event, stamp time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteICS(f, events, stamp); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func toVEvent(event *calendar.Event, stamp time.Time) (*ical.Event, error) {
	if event.Start == nil || event.End == nil {
		return nil, fmt.Errorf("event %q has no start or end", event.Summary)
	}
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event %q: invalid start %q: %w", event.Summary, event.Start.DateTime, err)
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil {
		return nil, fmt.Errorf("event %q: invalid end %q: %w", event.Summary, event.End.DateTime, err)
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, fmt.Sprintf("%d-%d@shift-sync", start.Unix(), end.Unix()))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	if event.Summary != "" {
		vevent.Props.SetText(ical.PropSummary, event.Summary)
	}
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}

	return vevent, nil
}
