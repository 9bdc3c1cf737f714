package scraper

import (
	"context"
	"fmt"
	"log"

	"github.com/beekhof/shift-sync/internal/config"
	"github.com/beekhof/shift-sync/internal/syncerr"
)

// Page is the browser surface the scraper drives. Selectors are CSS
// selectors evaluated against the current document.
type Page interface {
	// Navigate loads url and waits until selector is present.
	Navigate(ctx context.Context, url, selector string) error
	// Snapshot returns the rendered HTML of the current document.
	Snapshot(ctx context.Context) (string, error)
	// Type focuses the element matching selector and types text into it.
	Type(ctx context.Context, selector, text string) error
	// Submit clicks selector and waits for the navigation it triggers.
	Submit(ctx context.Context, selector string) error
	// WaitReady waits until selector is present in the document.
	WaitReady(ctx context.Context, selector string) error
	// ClickInFrame clicks selector inside the iframe matching frameSelector,
	// locating both afresh.
	ClickInFrame(ctx context.Context, frameSelector, selector string) error
}

type loginState int

const (
	stateNeedPartnerID loginState = iota
	stateNeedPassword
	stateNeedSecurityAnswer
	stateDone
	stateStuck
)

func (s loginState) String() string {
	switch s {
	case stateNeedPartnerID:
		return "need-partner-id"
	case stateNeedPassword:
		return "need-password"
	case stateNeedSecurityAnswer:
		return "need-security-answer"
	case stateDone:
		return "done"
	default:
		return "stuck"
	}
}

func stateFor(kind PageKind) loginState {
	switch kind {
	case PageSchedule:
		return stateDone
	case PagePartnerID:
		return stateNeedPartnerID
	case PagePassword:
		return stateNeedPassword
	case PageSecurityQuestion:
		return stateNeedSecurityAnswer
	default:
		return stateStuck
	}
}

// Navigator logs into the scheduling site one page at a time until the
// schedule page is showing.
type Navigator struct {
	page     Page
	sel      config.Selectors
	secrets  *config.Secrets
	maxSteps int

	submissions int
}

// NewNavigator creates a Navigator that gives up after maxSteps submissions.
func NewNavigator(page Page, sel config.Selectors, secrets *config.Secrets, maxSteps int) *Navigator {
	return &Navigator{page: page, sel: sel, secrets: secrets, maxSteps: maxSteps}
}

// Submissions reports how many login forms were submitted.
func (n *Navigator) Submissions() int {
	return n.submissions
}

// Login answers whatever login page is showing, submits it, and repeats
// until the schedule page appears.
func (n *Navigator) Login(ctx context.Context) error {
	for {
		status, err := n.status(ctx)
		if err != nil {
			return err
		}

		state := stateFor(status.Kind())
		switch state {
		case stateDone:
			log.Printf("Reached schedule page after %d submission(s)", n.submissions)
			return nil
		case stateStuck:
			return fmt.Errorf("%w: unrecognized page after %d submission(s) (%s)", syncerr.ErrNavigation, n.submissions, status)
		}

		if n.submissions >= n.maxSteps {
			return fmt.Errorf("%w: schedule page not reached after %d submissions, last page %s", syncerr.ErrNavigation, n.submissions, status.Kind())
		}

		input, value, err := n.credentialFor(state, status)
		if err != nil {
			return err
		}

		log.Printf("Login step %d: %s", n.submissions+1, state)
		if err := n.page.Type(ctx, input, value); err != nil {
			return fmt.Errorf("%w: failed to fill %s field on %s page: %w", syncerr.ErrNavigation, input, status.Kind(), err)
		}
		if err := n.page.Submit(ctx, n.sel.SubmitButton); err != nil {
			return fmt.Errorf("%w: failed to submit %s page: %w", syncerr.ErrNavigation, status.Kind(), err)
		}
		n.submissions++

		if err := n.page.WaitReady(ctx, n.sel.PageReady); err != nil {
			return fmt.Errorf("%w: no login field or schedule after submitting %s page: %w", syncerr.ErrNavigation, status.Kind(), err)
		}
	}
}

func (n *Navigator) status(ctx context.Context) (PageStatus, error) {
	html, err := n.page.Snapshot(ctx)
	if err != nil {
		return PageStatus{}, fmt.Errorf("%w: failed to read page: %w", syncerr.ErrNavigation, err)
	}
	status, err := Classify(html, n.sel)
	if err != nil {
		return PageStatus{}, fmt.Errorf("%w: %w", syncerr.ErrNavigation, err)
	}
	return status, nil
}

// credentialFor picks the input selector and the value to type for state.
func (n *Navigator) credentialFor(state loginState, status PageStatus) (string, string, error) {
	switch state {
	case stateNeedPartnerID:
		return n.sel.UsernameInput, n.secrets.PartnerID, nil
	case stateNeedPassword:
		return n.sel.PasswordInput, n.secrets.Password, nil
	case stateNeedSecurityAnswer:
		answer, ok := n.secrets.Answer(status.Question)
		if !ok {
			return "", "", fmt.Errorf("%w: no security answer configured for question %q", syncerr.ErrConfiguration, status.Question)
		}
		return n.sel.SecurityAnswerInput, answer, nil
	}
	return "", "", fmt.Errorf("%w: no credential for state %s", syncerr.ErrNavigation, state)
}
