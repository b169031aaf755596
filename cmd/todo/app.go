package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"todoclient/internal/apiclient"
	"todoclient/internal/config"
	"todoclient/internal/logging"
	"todoclient/internal/models"
	"todoclient/internal/session"
)

var errNotLoggedIn = errors.New("not logged in; run `todo login` first")

// app is the wiring shared by every command
type app struct {
	cfg     *config.Config
	client  *apiclient.Client
	session *session.Manager
}

// newApp loads configuration, initializes logging and restores the saved session.
// Logs go to stdout only with --verbose and never for full-screen commands.
func newApp(fullScreen bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	logConfig := logging.NewLogConfigFromEnv("todo")
	logConfig.Stdout = verbose && !fullScreen
	logging.InitLogger(logConfig)

	client, err := apiclient.New(cfg.APIURL, apiclient.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}
	mgr := session.NewManager(client)
	client.SetTokenSource(mgr)

	a := &app{cfg: cfg, client: client, session: mgr}
	a.restore()
	mgr.Subscribe(a.persist)
	return a, nil
}

// restore seeds the client from the session file when it belongs to the same backend
func (a *app) restore() {
	log := logging.Component("cli")

	state, err := config.LoadSession(a.cfg.SessionFile)
	if err != nil {
		log.WithError(err).Warn("Ignoring unreadable session file")
		return
	}
	if state.APIURL != a.cfg.APIURL {
		return
	}
	a.client.SetRefreshCookie(state.RefreshCookie)
	if state.Token != "" {
		a.session.SetToken(state.Token)
	}
}

// persist keeps the session file in step with the credential
func (a *app) persist(cred models.Credential, state session.State) {
	log := logging.Component("cli")

	if state == session.StateUnauthenticated {
		if err := config.RemoveSession(a.cfg.SessionFile); err != nil {
			log.WithError(err).Warn("Failed to remove session file")
		}
		return
	}

	s := &config.SessionState{
		APIURL:        a.cfg.APIURL,
		Token:         cred.Token,
		RefreshCookie: a.client.RefreshCookie(),
	}
	if err := config.SaveSession(a.cfg.SessionFile, s); err != nil {
		log.WithError(err).Warn("Failed to save session")
	}
}

// authenticate makes sure a usable session exists and returns its user
func (a *app) authenticate(ctx context.Context) (*models.UserProfile, error) {
	if a.session.Credential().Token == "" {
		if a.client.RefreshCookie() == "" {
			return nil, errNotLoggedIn
		}
		if a.session.Bootstrap(ctx) != session.StateAuthenticated {
			return nil, errNotLoggedIn
		}
		return a.session.Credential().User, nil
	}

	user, err := a.session.Verify(ctx)
	if apiclient.IsUnauthenticated(err) {
		return nil, errNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify session: %s", apiclient.Message(err))
	}
	return user, nil
}

// prompt reads one line from in when value is empty
func prompt(in *bufio.Reader, out io.Writer, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

func displayName(u *models.UserProfile) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
