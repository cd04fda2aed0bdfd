package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/manash/slidegen/internal/config"
	"github.com/manash/slidegen/internal/cost"
	"github.com/manash/slidegen/internal/history"
	"github.com/manash/slidegen/pkg/models"
)

var flagHistoryLimit int

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [list|show|delete|clear]",
		Short: "Show or manage past renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd.Context(), app)
		},
	}
	cmd.PersistentFlags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "number of renders to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd.Context(), app)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one render",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd.Context(), app, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one render from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDelete(cmd.Context(), app, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every render from the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryClear(cmd.Context(), app)
		},
	})

	return cmd
}

// openHistory opens the history database. ok is false when it does not exist
// yet, in which case nothing has been recorded.
func openHistory(app *App) (store *history.Store, ok bool, err error) {
	paths, err := config.ResolvePaths(app.GetEnv)
	if err != nil {
		return nil, false, err
	}
	dbPath := history.DBPath(paths.DataDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, false, nil
	}
	store, err = history.NewStoreWithPath(dbPath)
	if err != nil {
		return nil, false, err
	}
	return store, true, nil
}

func runHistoryList(ctx context.Context, app *App) error {
	store, ok, err := openHistory(app)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(app.Out, "No renders recorded yet.")
		return nil
	}
	defer store.Close()

	renders, err := store.List(ctx, flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(renders) == 0 {
		fmt.Fprintln(app.Out, "No renders recorded yet.")
		return nil
	}

	fmt.Fprintf(app.Out, "%-36s  %-19s  %-26s  %-9s  %s\n", "ID", "CREATED", "MODEL", "SIZE", "OUTPUT")
	for _, r := range renders {
		fmt.Fprintf(app.Out, "%-36s  %-19s  %-26s  %-9s  %s\n",
			r.ID, history.FormatTimestamp(r.CreatedAt), r.Model, fmt.Sprintf("%dx%d", r.Width, r.Height), r.OutputPath)
	}
	return nil
}

func runHistoryShow(ctx context.Context, app *App, id string) error {
	store, ok, err := openHistory(app)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", history.ErrNotFound, id)
	}
	defer store.Close()

	r, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "ID:        %s\n", r.ID)
	fmt.Fprintf(app.Out, "Created:   %s\n", history.FormatTimestamp(r.CreatedAt))
	fmt.Fprintf(app.Out, "Provider:  %s\n", r.Provider)
	fmt.Fprintf(app.Out, "Model:     %s\n", r.Model)
	fmt.Fprintf(app.Out, "Template:  %s\n", r.TemplatePath)
	fmt.Fprintf(app.Out, "Output:    %s (%dx%d)\n", r.OutputPath, r.Width, r.Height)
	if r.Size != "" {
		fmt.Fprintf(app.Out, "Size:      %s\n", r.Size)
	}
	if r.Quality != "" {
		fmt.Fprintf(app.Out, "Quality:   %s\n", r.Quality)
	}
	if r.Aspect != "" {
		fmt.Fprintf(app.Out, "Aspect:    %s (%s crop)\n", r.Aspect, r.CropMode)
	}
	fmt.Fprintf(app.Out, "Est. cost: %s\n", cost.Format(&models.CostInfo{Total: r.Cost, Currency: r.Currency}))
	return nil
}

func runHistoryDelete(ctx context.Context, app *App, id string) error {
	store, ok, err := openHistory(app)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", history.ErrNotFound, id)
	}
	defer store.Close()

	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %s\n", id)
	return nil
}

func runHistoryClear(ctx context.Context, app *App) error {
	store, ok, err := openHistory(app)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(app.Out, "Deleted 0 render(s)")
		return nil
	}
	defer store.Close()

	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %d render(s)\n", n)
	return nil
}
