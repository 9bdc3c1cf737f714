// Package syncerr defines the error kinds a sync run can fail with.
//
// Callers wrap one of the sentinels with context, e.g.
//
//	fmt.Errorf("%w: no answer configured for %q", syncerr.ErrConfiguration, question)
//
// and test for the kind with errors.Is.
package syncerr

import "errors"

var (
	// ErrConfiguration covers missing or invalid config, secrets or security answers.
	// Raised before any browser or calendar mutation.
	ErrConfiguration = errors.New("configuration error")

	// ErrNavigation covers selector wait timeouts and unrecognized page states.
	ErrNavigation = errors.New("navigation error")

	// ErrDataIntegrity covers malformed schedule payloads and unresolvable timestamps.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrGateway covers calendar API failures on list, insert or delete.
	ErrGateway = errors.New("calendar gateway error")
)
