// Package auth obtains an OAuth2-authorized HTTP client for the Google
// Calendar API, running the browser consent flow on first use and persisting
// the token (and every refresh of it) through a TokenStore.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultCallbackAddr = "127.0.0.1:8080"
	consentTimeout      = 5 * time.Minute
)

// GoogleEndpoint is the OAuth2 endpoint for Google accounts.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// TokenStore is an interface for saving and loading OAuth tokens.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// NewOAuthConfig builds the client configuration for the given scopes.
func NewOAuthConfig(clientID, clientSecret string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://" + defaultCallbackAddr,
		Scopes:       scopes,
		Endpoint:     GoogleEndpoint,
	}
}

// persistingTokenSource saves the token whenever the underlying source hands
// out a new access token.
type persistingTokenSource struct {
	source oauth2.TokenSource
	store  TokenStore
	last   *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.source.Token()
	if err != nil {
		return nil, err
	}

	if p.last == nil || p.last.AccessToken != token.AccessToken {
		if err := p.store.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		p.last = token
	}

	return token, nil
}

// callbackServer receives the authorization code on a loopback address.
type callbackServer struct {
	redirectURL string
	codes       chan string
	errs        chan error
	server      *http.Server
}

// startCallbackServer listens on 127.0.0.1:8080, or a random port if that one
// is taken.
func startCallbackServer() (*callbackServer, error) {
	listener, err := net.Listen("tcp", defaultCallbackAddr)
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("failed to start local server: %w", err)
		}
	}

	cs := &callbackServer{
		redirectURL: fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port),
		codes:       make(chan string, 1),
		errs:        make(chan error, 1),
	}
	cs.server = &http.Server{
		Handler:      http.HandlerFunc(cs.handle),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}

	go func() {
		if err := cs.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cs.fail(fmt.Errorf("server error: %w", err))
		}
	}()

	return cs, nil
}

func (cs *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	switch {
	case query.Get("code") != "":
		fmt.Fprint(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
		select {
		case cs.codes <- query.Get("code"):
		default:
		}
	case query.Get("error") != "":
		fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>Error: %s</p></body></html>", query.Get("error"))
		cs.fail(fmt.Errorf("authorization error: %s", query.Get("error")))
	default:
		fmt.Fprint(w, "<html><body><h1>No authorization code received</h1></body></html>")
		cs.fail(errors.New("no authorization code received"))
	}
}

func (cs *callbackServer) fail(err error) {
	select {
	case cs.errs <- err:
	default:
	}
}

func (cs *callbackServer) wait(ctx context.Context) (string, error) {
	defer func() {
		// Let the browser receive the response before closing.
		go func() {
			time.Sleep(time.Second)
			cs.server.Shutdown(context.Background())
		}()
	}()

	select {
	case code := <-cs.codes:
		return code, nil
	case err := <-cs.errs:
		return "", fmt.Errorf("failed to receive authorization code: %w", err)
	case <-time.After(consentTimeout):
		return "", fmt.Errorf("authorization timeout: no response received within %s", consentTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GetAuthenticatedClient returns an HTTP client authorized for oauthConfig's
// scopes. Without a stored token it prints the consent URL to out and waits
// for the loopback redirect.
func GetAuthenticatedClient(ctx context.Context, oauthConfig *oauth2.Config, store TokenStore, out io.Writer) (*http.Client, error) {
	token, err := store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if token == nil {
		token, err = authorize(ctx, oauthConfig, store, out)
		if err != nil {
			return nil, err
		}
	}

	source := &persistingTokenSource{
		source: oauth2.ReuseTokenSource(token, oauthConfig.TokenSource(ctx, token)),
		store:  store,
		last:   token,
	}
	return oauth2.NewClient(ctx, source), nil
}

func authorize(ctx context.Context, oauthConfig *oauth2.Config, store TokenStore, out io.Writer) (*oauth2.Token, error) {
	cs, err := startCallbackServer()
	if err != nil {
		return nil, err
	}
	oauthConfig.RedirectURL = cs.redirectURL

	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if cs.redirectURL != "http://"+defaultCallbackAddr {
		log.Printf("Port 8080 was unavailable. Make sure %s is an authorized redirect URI in Google Cloud Console.", cs.redirectURL)
	}
	fmt.Fprintf(out, "\nAuthorize this app by visiting this url:\n%s\n\nWaiting for authorization...\n", authURL)

	code, err := cs.wait(ctx)
	if err != nil {
		return nil, err
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := store.SaveToken(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	log.Println("Authorization successful, token stored.")
	return token, nil
}
