package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beekhof/shift-sync/internal/config"
	"github.com/beekhof/shift-sync/internal/syncerr"
)

// PayloadSource yields schedule response bodies in arrival order.
type PayloadSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// Extractor pages through the schedule, collecting shifts until the site
// reports the end of the published schedule.
type Extractor struct {
	source   PayloadSource
	page     Page
	sel      config.Selectors
	timeout  time.Duration
	maxPages int
}

// NewExtractor creates an Extractor. timeout bounds the wait for each page
// of data; zero waits as long as ctx allows.
func NewExtractor(source PayloadSource, page Page, sel config.Selectors, timeout time.Duration, maxPages int) *Extractor {
	return &Extractor{source: source, page: page, sel: sel, timeout: timeout, maxPages: maxPages}
}

// Extract returns every shift across all schedule pages, in page order.
func (e *Extractor) Extract(ctx context.Context) ([]Shift, error) {
	var shifts []Shift

	for pageNum := 1; ; pageNum++ {
		if pageNum > e.maxPages {
			return nil, fmt.Errorf("%w: schedule did not end within %d pages", syncerr.ErrNavigation, e.maxPages)
		}

		body, err := e.next(ctx, pageNum)
		if err != nil {
			return nil, err
		}

		payload, err := DecodePayload(body)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		if payload.Terminal() {
			log.Printf("Schedule ends at page %d", pageNum)
			return shifts, nil
		}

		pageShifts, err := payload.Shifts()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		log.Printf("Schedule page %d: %d shift(s)", pageNum, len(pageShifts))
		shifts = append(shifts, pageShifts...)

		// The frame can be re-rendered between pages, so ClickInFrame locates
		// it again every time.
		if err := e.page.ClickInFrame(ctx, e.sel.ScheduleFrame, e.sel.NextButton); err != nil {
			return nil, fmt.Errorf("%w: failed to open schedule page %d: %w", syncerr.ErrNavigation, pageNum+1, err)
		}
	}
}

func (e *Extractor) next(ctx context.Context, pageNum int) ([]byte, error) {
	pullCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		pullCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, err := e.source.Next(pullCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: no schedule data for page %d within %s", syncerr.ErrNavigation, pageNum, e.timeout)
		}
		return nil, err
	}
	return body, nil
}
