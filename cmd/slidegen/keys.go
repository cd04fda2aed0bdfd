package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manash/slidegen/internal/config"
	"github.com/manash/slidegen/internal/keys"
	"github.com/manash/slidegen/pkg/models"
)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys [set|list|delete]",
		Short: "Manage stored API keys",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysList(app)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <provider> [key]",
		Short: "Store an API key (read from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysSet(app, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored API keys",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysList(app)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <provider>",
		Short: "Delete a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysDelete(app, args[0])
		},
	})

	return cmd
}

func keyStore(app *App) (*keys.Store, error) {
	paths, err := config.ResolvePaths(app.GetEnv)
	if err != nil {
		return nil, err
	}
	return keys.NewStore(paths.ConfigDir), nil
}

func runKeysSet(app *App, args []string) error {
	p, err := models.ParseProviderType(args[0])
	if err != nil {
		return err
	}
	store, err := keyStore(app)
	if err != nil {
		return err
	}

	var key string
	if len(args) == 2 {
		key = args[1]
	} else {
		key, err = readKey(app, p)
		if err != nil {
			return err
		}
	}

	if err := store.Set(p, key); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Stored %s key in %s\n", p, store.Path())
	return nil
}

// readKey prompts without echo on a terminal and reads one line otherwise.
func readKey(app *App, p models.ProviderType) (string, error) {
	if f, ok := app.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(app.Err, "Enter %s API key: ", p)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(app.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(app.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: no key given on stdin", models.ErrInvalidArgument)
	}
	return strings.TrimSpace(line), nil
}

func runKeysList(app *App) error {
	store, err := keyStore(app)
	if err != nil {
		return err
	}
	providers, err := store.List()
	if err != nil {
		return err
	}

	for _, p := range []models.ProviderType{models.ProviderOpenAI, models.ProviderGemini} {
		status := "not set"
		if key, err := store.Get(p); err == nil && key != "" {
			status = "stored " + keys.MaskKey(key)
		} else if env := app.GetEnv(p.EnvVar()); env != "" {
			status = fmt.Sprintf("from %s %s", p.EnvVar(), keys.MaskKey(env))
		}
		fmt.Fprintf(app.Out, "%-8s %s\n", p, status)
	}
	if len(providers) > 0 {
		fmt.Fprintf(app.Out, "\nKeys file: %s\n", store.Path())
	}
	return nil
}

func runKeysDelete(app *App, name string) error {
	p, err := models.ParseProviderType(name)
	if err != nil {
		return err
	}
	store, err := keyStore(app)
	if err != nil {
		return err
	}
	if err := store.Delete(p); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %s key\n", p)
	return nil
}
