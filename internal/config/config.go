package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/beekhof/shift-sync/internal/syncerr"
)

// CalendarScope is the OAuth scope needed to list, insert and delete events.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// Selectors holds every DOM selector and URL pattern the scraper depends on.
// The defaults match the scheduling site's current markup; override them in
// the config file when the site changes.
type Selectors struct {
	UsernameInput       string `json:"username_input" validate:"required"`
	PasswordInput       string `json:"password_input" validate:"required"`
	SecurityQuestion    string `json:"security_question" validate:"required"`
	SecurityAnswerInput string `json:"security_answer_input" validate:"required"`
	ScheduleContainer   string `json:"schedule_container" validate:"required"`
	SubmitButton        string `json:"submit_button" validate:"required"`
	PageReady           string `json:"page_ready" validate:"required"`
	ScheduleFrame       string `json:"schedule_frame" validate:"required"`
	NextButton          string `json:"next_button" validate:"required"`
	ScheduleDataPattern string `json:"schedule_data_pattern" validate:"required,regexp"`
}

// DefaultSelectors returns the selectors for the site's login and schedule pages.
func DefaultSelectors() Selectors {
	return Selectors{
		UsernameInput:       "input.textbox.txtUserid",
		PasswordInput:       "input.textbox.tbxPassword",
		SecurityQuestion:    ".bodytext.lblKBQ.lblKBQ1",
		SecurityAnswerInput: "input.textbox.tbxKBA",
		ScheduleContainer:   ".x-component",
		SubmitButton:        "input[type='submit']:not(.aspNetDisabled)",
		PageReady:           "input.textbox,.x-component",
		ScheduleFrame:       ".x-component",
		NextButton:          "#button-1029-btnIconEl",
		ScheduleDataPattern: "/retail/data/wfmess/api/.*/mySchedules/",
	}
}

// fillDefaults sets every empty selector to its default.
func (s *Selectors) fillDefaults() {
	d := DefaultSelectors()
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&s.UsernameInput, d.UsernameInput},
		{&s.PasswordInput, d.PasswordInput},
		{&s.SecurityQuestion, d.SecurityQuestion},
		{&s.SecurityAnswerInput, d.SecurityAnswerInput},
		{&s.ScheduleContainer, d.ScheduleContainer},
		{&s.SubmitButton, d.SubmitButton},
		{&s.PageReady, d.PageReady},
		{&s.ScheduleFrame, d.ScheduleFrame},
		{&s.NextButton, d.NextButton},
		{&s.ScheduleDataPattern, d.ScheduleDataPattern},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

// Config holds the configuration for the shift sync tool.
type Config struct {
	SiteURL  string   `json:"site_url" env:"SHIFTSYNC_SITE_URL" validate:"required,url"`
	TimeZone string   `json:"time_zone" env:"SHIFTSYNC_TIME_ZONE" validate:"required,timezone"`
	Scopes   []string `json:"scopes,omitempty" env:"SHIFTSYNC_SCOPES" validate:"required,min=1"`

	GoogleCredentialsPath string `json:"google_credentials_path" env:"GOOGLE_CREDENTIALS_PATH" validate:"required"`
	TokenPath             string `json:"token_path" env:"SHIFTSYNC_TOKEN_PATH" validate:"required"`
	SecretsPath           string `json:"secrets_path" env:"SHIFTSYNC_SECRETS_PATH" validate:"required"`
	EventTemplatePath     string `json:"event_template_path,omitempty" env:"SHIFTSYNC_EVENT_TEMPLATE_PATH"`

	// ICSExportPath, when set, receives the scraped shifts as an iCalendar file.
	ICSExportPath string `json:"ics_export_path,omitempty" env:"SHIFTSYNC_ICS_EXPORT_PATH"`

	// Schedule is a cron expression. When set the process keeps running and
	// syncs on that schedule instead of exiting after one run.
	Schedule string `json:"schedule,omitempty" env:"SHIFTSYNC_SCHEDULE"`

	ShowBrowser              bool  `json:"show_browser,omitempty" env:"SHIFTSYNC_SHOW_BROWSER"`
	NavigationTimeoutSeconds int   `json:"navigation_timeout_seconds,omitempty" env:"SHIFTSYNC_NAVIGATION_TIMEOUT_SECONDS" validate:"gte=0"`
	MaxLoginSteps            int   `json:"max_login_steps,omitempty" env:"SHIFTSYNC_MAX_LOGIN_STEPS" validate:"gte=0"`
	MaxPages                 int   `json:"max_pages,omitempty" env:"SHIFTSYNC_MAX_PAGES" validate:"gte=0"`
	MaxEvents                int64 `json:"max_events,omitempty" env:"SHIFTSYNC_MAX_EVENTS" validate:"gte=0,lte=2500"`

	Selectors Selectors `json:"selectors"`
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", syncerr.ErrConfiguration, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file %s: %w", syncerr.ErrConfiguration, path, err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error wrapping syncerr.ErrConfiguration if a required value is missing.
func LoadConfig(configFile, tokenPathFlag, googleCredentialsPathFlag, secretsPathFlag string) (*Config, error) {
	var config Config

	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Unset variables leave the file values in place.
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("%w: invalid environment: %w", syncerr.ErrConfiguration, err)
	}

	if tokenPathFlag != "" {
		config.TokenPath = tokenPathFlag
	}
	if googleCredentialsPathFlag != "" {
		config.GoogleCredentialsPath = googleCredentialsPathFlag
	}
	if secretsPathFlag != "" {
		config.SecretsPath = secretsPathFlag
	}

	config.applyDefaults()

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if len(c.Scopes) == 0 {
		c.Scopes = []string{CalendarScope}
	}
	if c.NavigationTimeoutSeconds == 0 {
		c.NavigationTimeoutSeconds = 60
	}
	if c.MaxLoginSteps == 0 {
		c.MaxLoginSteps = 10
	}
	if c.MaxPages == 0 {
		c.MaxPages = 20
	}
	if c.MaxEvents == 0 {
		c.MaxEvents = 99
	}
	c.Selectors.fillDefaults()
}

// Location returns the time zone shift timestamps are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time_zone %q: %w", syncerr.ErrConfiguration, c.TimeZone, err)
	}
	return loc, nil
}

// NavigationTimeout bounds each browser step and each wait for schedule data.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutSeconds) * time.Second
}

// ScheduleDataPattern compiles the schedule endpoint pattern.
func (c *Config) ScheduleDataPattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.Selectors.ScheduleDataPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid schedule_data_pattern: %w", syncerr.ErrConfiguration, err)
	}
	return re, nil
}
