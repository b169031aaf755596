package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"todoclient/internal/logging"
	"todoclient/internal/querycache"
	"todoclient/internal/session"
	"todoclient/internal/todos"
	"todoclient/internal/tui"
)

var browseMode string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse todos interactively with infinite scrolling",
	Long: `Open a full-screen list of todos. Pages load as you scroll.
Use --mode append to render every loaded todo, or --mode window to render only the visible rows.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseMode, "mode", "", "Render mode: append or window (default from config)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(true)
	if err != nil {
		return err
	}
	user, err := a.authenticate(ctx)
	if err != nil {
		return err
	}

	mode := tui.Mode(a.cfg.Render.Mode)
	if browseMode != "" {
		mode = tui.Mode(browseMode)
	}
	if mode != tui.ModeAppend && mode != tui.ModeWindow {
		return fmt.Errorf("unknown mode %q: use append or window", mode)
	}

	bridge := tui.NewBridge()
	cache := querycache.New(a.client,
		querycache.WithPageSize(a.cfg.PageSize),
		querycache.WithNotifier(bridge),
	)
	unsubscribeCache := cache.Subscribe(bridge.CacheChanged)
	defer unsubscribeCache()
	unsubscribeSession := a.session.Subscribe(bridge.SessionChanged)
	defer unsubscribeSession()

	ctrl := todos.NewController(ctx, cache, a.cfg.Debounce)
	defer ctrl.Close()

	model := tui.New(ctx, ctrl, bridge, tui.Options{
		Mode:        mode,
		Overscan:    a.cfg.Render.Overscan,
		RowEstimate: a.cfg.Render.RowEstimate,
		User:        displayName(user),
	})

	logging.Component("cli").WithField("mode", mode).Info("Starting browser")
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("browser failed: %w", err)
	}

	if a.session.State() == session.StateUnauthenticated {
		return errors.New("session expired; run `todo login` to sign in again")
	}
	return nil
}
