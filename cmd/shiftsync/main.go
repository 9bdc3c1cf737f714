package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/beekhof/shift-sync/internal/auth"
	calclient "github.com/beekhof/shift-sync/internal/calendar"
	"github.com/beekhof/shift-sync/internal/config"
	"github.com/beekhof/shift-sync/internal/scraper"
	"github.com/beekhof/shift-sync/internal/sync"
)

func printHelp() {
	fmt.Fprintf(os.Stderr, `Shift Sync

Logs into the shift scheduling site with a headless browser, downloads the
published schedule, and makes a Google Calendar match it: shifts without an
event are added and events without a shift are removed.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help                     Show this help message and exit
    -v, --verbose                  Log every shift and event decision (DEBUG logs)
    --config FILE                  Path to JSON config file (required)
    --token-path PATH              Path to store the Google OAuth token
                                   (overrides config file and SHIFTSYNC_TOKEN_PATH env var)
    --google-credentials-path PATH Path to Google OAuth credentials JSON file
                                   (overrides config file and GOOGLE_CREDENTIALS_PATH env var)
    --secrets-path PATH            Path to the site credentials JSON file
                                   (overrides config file and SHIFTSYNC_SECRETS_PATH env var)
    --dry-run                      Log the planned changes without touching the calendar
    --once                         Run a single sync even if a schedule is configured

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (SHIFTSYNC_*, GOOGLE_CREDENTIALS_PATH)
    3. Config file (--config)
    4. Defaults

CONFIG FILE:
    {
      "site_url": "https://schedule.example.com/",
      "time_zone": "America/Los_Angeles",
      "google_credentials_path": "/path/to/credentials.json",
      "token_path": "/path/to/token.json",
      "secrets_path": "/path/to/secrets.json",
      "event_template_path": "/path/to/template.json",
      "ics_export_path": "/path/to/shifts.ics",
      "schedule": "0 */6 * * *",
      "navigation_timeout_seconds": 60,
      "max_events": 99
    }

SECRETS FILE:
    {
      "partner_id": "US1234",
      "password": "...",
      "security_answers": {"What was the name of your first pet?": "..."},
      "calendar": {"name": "Work Shifts"}
    }

    The event template is a Google Calendar event in JSON. The tokens
    [job_type] and [details] in its summary and description are replaced
    for each shift. Without a template the summary is the job and the
    description lists the shift's segments.

IMPORTANT:
    The schedule site is the source of truth for upcoming events in the
    destination calendar. Any upcoming event that does not line up exactly
    with a published shift is DELETED. Use a dedicated calendar.

EXAMPLES:
    # Sync once
    %s --config /path/to/config.json --once

    # Preview the changes
    %s --config /path/to/config.json --dry-run -v
`, os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	// Parse command-line flags
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output (show DEBUG logs)")
	verboseFlagShort := flag.Bool("v", false, "Enable verbose output (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file (required)")
	tokenPath := flag.String("token-path", "", "Path to store the Google OAuth token (overrides config file and SHIFTSYNC_TOKEN_PATH env var)")
	googleCredentialsPath := flag.String("google-credentials-path", "", "Path to Google OAuth credentials JSON file (overrides config file and GOOGLE_CREDENTIALS_PATH env var)")
	secretsPath := flag.String("secrets-path", "", "Path to the site credentials JSON file (overrides config file and SHIFTSYNC_SECRETS_PATH env var)")
	dryRun := flag.Bool("dry-run", false, "Log the planned changes without touching the calendar")
	once := flag.Bool("once", false, "Run a single sync even if a schedule is configured")
	flag.Parse()

	verbose := *verboseFlag || *verboseFlagShort

	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration (precedence: flags > env vars > config file > defaults)
	if *configFile == "" {
		log.Fatalf("--config FILE is required. Use --help for more information.")
	}
	cfg, err := config.LoadConfig(*configFile, *tokenPath, *googleCredentialsPath, *secretsPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	secrets, err := config.LoadSecrets(cfg.SecretsPath)
	if err != nil {
		log.Fatalf("Failed to load secrets: %v", err)
	}
	template, err := config.LoadEventTemplate(cfg.EventTemplatePath)
	if err != nil {
		log.Fatalf("Failed to load event template: %v", err)
	}

	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to load Google credentials: %v", err)
	}
	oauthConfig := auth.NewOAuthConfig(clientID, clientSecret, cfg.Scopes)
	httpClient, err := auth.GetAuthenticatedClient(ctx, oauthConfig, auth.NewFileTokenStore(cfg.TokenPath), os.Stdout)
	if err != nil {
		log.Fatalf("Failed to authenticate Google account: %v", err)
	}
	gateway, err := calclient.NewClient(ctx, httpClient)
	if err != nil {
		log.Fatalf("Failed to create calendar client: %v", err)
	}

	syncer, err := sync.NewSyncer(gateway, scraper.NewSession(cfg, secrets), cfg, secrets, template)
	if err != nil {
		log.Fatalf("Failed to create syncer: %v", err)
	}
	syncer.DryRun = *dryRun
	syncer.Verbose = verbose

	if cfg.Schedule == "" || *once {
		if err := runOnce(ctx, syncer); err != nil {
			os.Exit(1)
		}
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to load time zone: %v", err)
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(cfg.Schedule, func() { _ = runOnce(ctx, syncer) }); err != nil {
		log.Fatalf("Invalid schedule %q: %v", cfg.Schedule, err)
	}

	log.Printf("Syncing on schedule %q (%s)", cfg.Schedule, cfg.TimeZone)
	c.Start()
	<-ctx.Done()
	log.Println("Shutting down, waiting for a running sync to finish...")
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, syncer *sync.Syncer) error {
	result, err := syncer.Sync(ctx)
	if err != nil {
		if result != nil {
			log.Printf("Sync finished with %d failed change(s): %v", result.Failed, err)
		} else {
			log.Printf("Sync failed: %v", err)
		}
		return err
	}
	log.Printf("Sync completed successfully (%d shift(s), %d upcoming event(s)).", result.Shifts, result.Events)
	return nil
}
