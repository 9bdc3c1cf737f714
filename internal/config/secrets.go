package config

import (
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/api/calendar/v3"

	"github.com/beekhof/shift-sync/internal/syncerr"
)

// CalendarRef identifies the destination calendar by id or by display name.
type CalendarRef struct {
	ID   string `json:"id,omitempty" validate:"required_without=Name"`
	Name string `json:"name,omitempty" validate:"required_without=ID"`
}

// Secrets holds the scheduling site credentials and the destination calendar.
// It lives in its own file so the main config can be shared.
type Secrets struct {
	PartnerID string `json:"partner_id" validate:"required"`
	Password  string `json:"password" validate:"required"`

	// SecurityAnswers maps the exact security question text shown by the
	// site to its answer.
	SecurityAnswers map[string]string `json:"security_answers,omitempty"`

	Calendar CalendarRef `json:"calendar"`
}

// Answer returns the configured answer for a security question.
func (s *Secrets) Answer(question string) (string, bool) {
	answer, ok := s.SecurityAnswers[question]
	return answer, ok && answer != ""
}

// LoadSecrets loads and validates the secrets file.
func LoadSecrets(path string) (*Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read secrets file: %w", syncerr.ErrConfiguration, err)
	}

	var secrets Secrets
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("%w: failed to parse secrets file %s: %w", syncerr.ErrConfiguration, path, err)
	}

	if err := validate(&secrets); err != nil {
		return nil, err
	}

	return &secrets, nil
}

// DefaultEventTemplate is used when no event_template_path is configured.
func DefaultEventTemplate() *calendar.Event {
	return &calendar.Event{
		Summary:     "[job_type]",
		Description: "[details]",
	}
}

// LoadEventTemplate reads the event template a shift is rendered into.
// The [job_type] and [details] tokens in its summary and description are
// replaced per shift; start and end are always overwritten.
func LoadEventTemplate(path string) (*calendar.Event, error) {
	if path == "" {
		return DefaultEventTemplate(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read event template: %w", syncerr.ErrConfiguration, err)
	}

	var event calendar.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: failed to parse event template %s: %w", syncerr.ErrConfiguration, path, err)
	}

	return &event, nil
}

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to read credentials file: %w", syncerr.ErrConfiguration, err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("%w: failed to parse credentials file: %w", syncerr.ErrConfiguration, err)
	}

	// Desktop apps use "installed", web apps "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("%w: no client_id found in credentials file (expected 'installed' or 'web' section)", syncerr.ErrConfiguration)
}
