package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"google.golang.org/api/calendar/v3"
)

func TestWriteICS(t *testing.T) {
	events := []*calendar.Event{
		{
			Summary:     "Barista",
			Description: "Work: 09:00:00 - 17:00:00",
			Start:       &calendar.EventDateTime{DateTime: "2024-01-10T09:00:00-08:00", TimeZone: "America/Los_Angeles"},
			End:         &calendar.EventDateTime{DateTime: "2024-01-10T17:00:00-08:00", TimeZone: "America/Los_Angeles"},
		},
	}

	var buf bytes.Buffer
	if err := WriteICS(&buf, events, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteICS() returned an error: %v", err)
	}

	cal, err := ical.NewDecoder(strings.NewReader(buf.String())).Decode()
	if err != nil {
		t.Fatalf("failed to decode exported calendar: %v", err)
	}
	vevents := cal.Events()
	if len(vevents) != 1 {
		t.Fatalf("Expected 1 VEVENT, got %d", len(vevents))
	}

	summary, err := vevents[0].Props.Text(ical.PropSummary)
	if err != nil || summary != "Barista" {
		t.Errorf("Expected SUMMARY 'Barista', got %q (err=%v)", summary, err)
	}

	start, err := vevents[0].DateTimeStart(time.UTC)
	if err != nil {
		t.Fatalf("DateTimeStart() returned an error: %v", err)
	}
	if want := time.Date(2024, 1, 10, 17, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("Expected DTSTART %v, got %v", want, start)
	}

	uid, _ := vevents[0].Props.Text(ical.PropUID)
	if !strings.HasSuffix(uid, "@shift-sync") {
		t.Errorf("Expected derived UID, got %q", uid)
	}
}

func TestWriteICS_RejectsUnparseableTimes(t *testing.T) {
	events := []*calendar.Event{
		{
			Summary: "Broken",
			Start:   &calendar.EventDateTime{DateTime: "tomorrow"},
			End:     &calendar.EventDateTime{DateTime: "later"},
		},
	}

	if err := WriteICS(&bytes.Buffer{}, events, time.Now()); err == nil {
		t.Fatal("Expected an error for an unparseable start time")
	}
}
