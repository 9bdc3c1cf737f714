package sync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

const (
	jobTypeToken = "[job_type]"
	detailsToken = "[details]"
)

// BuildEventPayload renders a shift into a copy of template. The
// placeholders are replaced in both summary and description; start and end
// are always set from the decision. template itself is left untouched.
func BuildEventPayload(template *calendar.Event, d ShiftDecision, tzName string) (*calendar.Event, error) {
	event, err := copyEvent(template)
	if err != nil {
		return nil, err
	}

	replacer := strings.NewReplacer(jobTypeToken, d.Shift.JobType, detailsToken, d.Shift.Details)
	event.Summary = replacer.Replace(event.Summary)
	event.Description = replacer.Replace(event.Description)

	event.Start = &calendar.EventDateTime{DateTime: d.Start.Format(time.RFC3339), TimeZone: tzName}
	event.End = &calendar.EventDateTime{DateTime: d.End.Format(time.RFC3339), TimeZone: tzName}

	return event, nil
}

func copyEvent(template *calendar.Event) (*calendar.Event, error) {
	if template == nil {
		return &calendar.Event{}, nil
	}
	data, err := json.Marshal(template)
	if err != nil {
		return nil, fmt.Errorf("failed to copy event template: %w", err)
	}
	var event calendar.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to copy event template: %w", err)
	}
	return &event, nil
}
