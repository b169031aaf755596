package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"todoclient/internal/apiclient"
	"todoclient/internal/logging"
	"todoclient/internal/models"
	"todoclient/internal/notify"
	"todoclient/internal/querycache"
	"todoclient/internal/render"
)

var (
	listSearch string
	listStatus string
	listDate   string
	listPages  int
	listAll    bool
	listLimit  int

	addDescription string

	editTitle       string
	editDescription string
	editCompleted   bool

	toggleUndo bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List todos, optionally searching and filtering",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a todo's title, description or completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Mark a todo as done (or pending with --undo)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only todos whose title contains this text")
	listCmd.Flags().StringVar(&listStatus, "status", "all", "Completion filter (all, completed, pending)")
	listCmd.Flags().StringVar(&listDate, "date", "", "Only todos created on this day (YYYY-MM-DD)")
	listCmd.Flags().IntVar(&listPages, "pages", 1, "Number of pages to load")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Load every page")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Page size (default from config)")

	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Optional description")

	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editDescription, "description", "", "New description")
	editCmd.Flags().BoolVar(&editCompleted, "completed", false, "Completion state")

	toggleCmd.Flags().BoolVar(&toggleUndo, "undo", false, "Mark as pending instead")
}

// newCache builds a cache whose success notifications are printed to out
func (a *app) newCache(out io.Writer, pageSize int) *querycache.Cache {
	if pageSize <= 0 {
		pageSize = a.cfg.PageSize
	}
	printer := notify.Func(func(n notify.Notification) {
		notify.LogNotifier{}.Notify(n)
		if n.Level != notify.LevelError {
			fmt.Fprintln(out, n.Message)
		}
	})
	return querycache.New(a.client, querycache.WithPageSize(pageSize), querycache.WithNotifier(printer))
}

// signedIn builds the app and checks the session before a todo command
func signedIn(ctx context.Context) (*app, error) {
	a, err := newApp(false)
	if err != nil {
		return nil, err
	}
	if _, err := a.authenticate(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func runList(cmd *cobra.Command, args []string) error {
	filter := models.Filter{Status: models.Status(listStatus), Date: listDate}
	if err := filter.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := signedIn(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cache := a.newCache(out, listLimit)
	key := models.NewQueryKey(listSearch, filter)

	if err := loadPages(ctx, cache, key, listPages, listAll); err != nil {
		return fmt.Errorf("failed to load todos: %s", apiclient.Message(err))
	}

	printList(out, cache.View(key), cache.Pages(key))
	return nil
}

// loadPages fetches page 1, then keeps going until n pages are loaded or, with all, the list is exhausted
func loadPages(ctx context.Context, cache *querycache.Cache, key models.QueryKey, n int, all bool) error {
	if err := cache.Load(ctx, key); err != nil {
		return err
	}
	for loaded := 1; all || loaded < n; loaded++ {
		_, err := cache.FetchNextPage(ctx, key)
		if errors.Is(err, querycache.ErrNoMorePages) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printList(out io.Writer, v querycache.ListView, pages []models.Page) {
	frame := render.NewAppendList(nil).Frame(v)
	if frame.State != render.StateItems {
		fmt.Fprintf(out, "%s\n%s\n", frame.Title, frame.Message)
		return
	}

	rows := make([][]string, 0, len(frame.Items))
	for _, t := range frame.Items {
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		rows = append(rows, []string{t.ID, checkMark(t.Completed), t.Title, desc, t.CreatedAt.Local().Format("2006-01-02")})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DONE", "TITLE", "DESCRIPTION", "CREATED").
		Rows(rows...)
	fmt.Fprintln(out, tbl.String())

	total := 0
	if len(pages) > 0 {
		total = pages[len(pages)-1].Total
	}
	footer := fmt.Sprintf("%d of %d shown, %d completed, %d pending", len(frame.Items), total, v.Stats.Completed, v.Stats.Pending)
	if v.HasNextPage {
		footer += " (more available: use --pages or --all)"
	}
	fmt.Fprintln(out, footer)
}

func checkMark(done bool) string {
	if done {
		return "x"
	}
	return ""
}

// defaultKey is the unfiltered listing mutations are applied against
func defaultKey() models.QueryKey {
	return models.NewQueryKey("", models.Filter{})
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := signedIn(ctx)
	if err != nil {
		return err
	}

	input := models.CreateTodoRequest{Title: strings.Join(args, " ")}
	if addDescription != "" {
		input.Description = &addDescription
	}

	todo, err := a.newCache(cmd.OutOrStdout(), 0).Create(ctx, defaultKey(), input)
	if err != nil {
		return fmt.Errorf("failed to create todo: %s", apiclient.Message(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", todo.ID, todo.Title)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	var patch models.UpdateTodoRequest
	if cmd.Flags().Changed("title") {
		patch.Title = &editTitle
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &editDescription
	}
	if cmd.Flags().Changed("completed") {
		patch.Completed = &editCompleted
	}
	if patch.IsEmpty() {
		return errors.New("nothing to change: pass --title, --description or --completed")
	}

	ctx := cmd.Context()
	a, err := signedIn(ctx)
	if err != nil {
		return err
	}

	todo, err := a.newCache(cmd.OutOrStdout(), 0).Update(ctx, defaultKey(), args[0], patch)
	if err != nil {
		return fmt.Errorf("failed to update todo: %s", apiclient.Message(err))
	}
	logging.Component("cli").WithField("todo_id", todo.ID).Debug("Todo updated")
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := signedIn(ctx)
	if err != nil {
		return err
	}

	todo, err := a.newCache(cmd.OutOrStdout(), 0).Toggle(ctx, defaultKey(), args[0], !toggleUndo)
	if err != nil {
		return fmt.Errorf("failed to toggle todo: %s", apiclient.Message(err))
	}

	state := "pending"
	if todo.Completed {
		state = "done"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%q is now %s\n", todo.Title, state)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := signedIn(ctx)
	if err != nil {
		return err
	}

	if err := a.newCache(cmd.OutOrStdout(), 0).Delete(ctx, defaultKey(), args[0]); err != nil {
		return fmt.Errorf("failed to delete todo: %s", apiclient.Message(err))
	}
	return nil
}
