// Package calendar talks to the calendar provider: listing calendars and
// upcoming events, inserting and deleting events, and exporting events as
// iCalendar.
package calendar

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Gateway is the set of calendar operations a sync run needs.
type Gateway interface {
	ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error)
	// ListUpcomingEvents returns up to maxResults single-occurrence events starting
	// at or after from, ordered by start time.
	ListUpcomingEvents(ctx context.Context, calendarID string, from time.Time, maxResults int64) ([]*calendar.Event, error)
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
