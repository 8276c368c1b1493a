package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"aspirebot/internal/backend"
	"aspirebot/internal/cli"
	"aspirebot/internal/config"
	"aspirebot/internal/conversation"
	applog "aspirebot/internal/log"
	"aspirebot/internal/sheets"
)

const (
	textOutputFormat = "text"
	jsonOutputFormat = "json"
)

// catalogCommand prints the categories and accounts the bot would offer.
type catalogCommand struct {
	open func(ctx context.Context) (sheets.ConfigurationReader, func() error, error)
}

func newCatalogCmd() *cobra.Command {
	c := catalogCommand{open: openConfiguredBackend}
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the categories and accounts read from the spreadsheet",
		Long: `Reads the category configuration and account list through the
configured backend and prints them, to check the named ranges without
starting the bot.`,
		RunE: c.run,
	}
	cmd.Flags().StringP("output", "o", textOutputFormat, "Output format: text or json")
	return cmd
}

func openConfiguredBackend(ctx context.Context) (sheets.ConfigurationReader, func() error, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger := cli.SetupLogger(config.LogConfig{Level: "warn", Format: cfg.Log.Format}, applog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Backend, res.Cleanup, nil
}

func (c *catalogCommand) run(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("output")
	if !slices.Contains([]string{textOutputFormat, jsonOutputFormat}, format) {
		return fmt.Errorf("invalid output format: %s (must be one of %v)", format, []string{textOutputFormat, jsonOutputFormat})
	}

	reader, cleanup, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	catalog, err := conversation.LoadCatalog(cmd.Context(), reader)
	if err != nil {
		return err
	}
	return printCatalog(cmd.OutOrStdout(), catalog, format)
}

type catalogGroup struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

type catalogOutput struct {
	Groups   []catalogGroup `json:"groups"`
	Accounts []string       `json:"accounts"`
}

func printCatalog(w io.Writer, catalog conversation.Catalog, format string) error {
	out := catalogOutput{Accounts: append([]string{}, catalog.Accounts...)}
	for _, name := range catalog.Categories.Groups() {
		items, _ := catalog.Categories.Items(name)
		out.Groups = append(out.Groups, catalogGroup{Name: name, Categories: items})
	}

	if format == jsonOutputFormat {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, g := range out.Groups {
		fmt.Fprintf(&b, "  %s (%d)\n", g.Name, len(g.Categories))
		for _, item := range g.Categories {
			fmt.Fprintf(&b, "    - %s\n", item)
		}
	}
	fmt.Fprintf(&b, "Accounts (%d):\n", len(out.Accounts))
	for _, a := range out.Accounts {
		fmt.Fprintf(&b, "  - %s\n", a)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
