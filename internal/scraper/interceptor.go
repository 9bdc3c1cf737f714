package scraper

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sync"

	"github.com/beekhof/shift-sync/internal/syncerr"
)

// BodyFetcher reads the body of a finished network response.
type BodyFetcher func(ctx context.Context, requestID string) ([]byte, error)

type payload struct {
	requestID string
	body      []byte
	err       error
}

// Interceptor collects the bodies of schedule-data responses as the page
// loads them. The browser's network events feed ResponseReceived and
// LoadingFinished; Run reads bodies in the order responses finished; Next
// hands them to the extractor one at a time.
type Interceptor struct {
	pattern *regexp.Regexp
	fetch   BodyFetcher

	mu      sync.Mutex
	watched map[string]string // request id -> url

	finished Queue[string]
	payloads Queue[payload]
}

// NewInterceptor watches responses whose URL matches pattern.
func NewInterceptor(pattern *regexp.Regexp, fetch BodyFetcher) *Interceptor {
	return &Interceptor{
		pattern: pattern,
		fetch:   fetch,
		watched: make(map[string]string),
	}
}

// ResponseReceived records a response's URL. Only matching responses are
// remembered; the body is not available until loading finishes.
func (i *Interceptor) ResponseReceived(requestID, url string) {
	if !i.pattern.MatchString(url) {
		return
	}
	i.mu.Lock()
	i.watched[requestID] = url
	i.mu.Unlock()
}

// LoadingFinished queues a watched response for body retrieval. It never
// blocks, so it is safe to call from the browser's event loop.
func (i *Interceptor) LoadingFinished(requestID string) {
	i.mu.Lock()
	url, ok := i.watched[requestID]
	delete(i.watched, requestID)
	i.mu.Unlock()

	if ok {
		log.Printf("DEBUG: schedule data finished loading: %s", url)
		i.finished.Push(requestID)
	}
}

// Run fetches bodies for finished responses until ctx ends.
func (i *Interceptor) Run(ctx context.Context) {
	for {
		requestID, err := i.finished.Pull(ctx)
		if err != nil {
			return
		}
		body, err := i.fetch(ctx, requestID)
		i.payloads.Push(payload{requestID: requestID, body: body, err: err})
	}
}

// Next returns the oldest unread schedule payload, waiting for one if none
// has arrived yet.
func (i *Interceptor) Next(ctx context.Context) ([]byte, error) {
	p, err := i.payloads.Pull(ctx)
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, fmt.Errorf("%w: failed to read schedule response %s: %w", syncerr.ErrDataIntegrity, p.requestID, p.err)
	}
	return p.body, nil
}
