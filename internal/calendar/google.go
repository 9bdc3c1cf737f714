package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client is a wrapper around the Google Calendar API service.
type Client struct {
	service *calendar.Service
}

// NewClient creates a new Google Calendar API client using the provided HTTP
// client. Extra options are appended, e.g. option.WithEndpoint in tests.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service}, nil
}

// ListCalendars returns every calendar on the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	var entries []*calendar.CalendarListEntry
	err := c.service.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		entries = append(entries, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	return entries, nil
}

// ListUpcomingEvents lists events starting from the given instant.
// Important: Sets SingleEvents = true to expand recurring events.
func (c *Client) ListUpcomingEvents(ctx context.Context, calendarID string, from time.Time, maxResults int64) ([]*calendar.Event, error) {
	eventsList, err := c.service.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true). // Expand recurring events
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return eventsList.Items, nil
}

// InsertEvent inserts a new event into a calendar.
// Important: Sets sendUpdates="none" to prevent notifications.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	created, err := c.service.Events.Insert(calendarID, event).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return created, nil
}

// DeleteEvent deletes an event from a calendar.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := c.service.Events.Delete(calendarID, eventID).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}

	return nil
}
