package main

import (
	"fmt"

	"github.com/bluora/isbnplus-go/pkg/client"
	"github.com/bluora/isbnplus-go/pkg/config"
	"github.com/bluora/isbnplus-go/pkg/logging"
	"github.com/spf13/cobra"
)

// app holds state shared by all commands.
type app struct {
	cfgFile  string
	logLevel string

	// credentials given as flags; empty flags keep configured values
	creds config.Credentials

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "isbnplus",
		Short: "Search the ISBN Plus book service",
		Long: `isbnplus searches the ISBN Plus book metadata service by keyword, author,
category, series or title and walks every result page for you.

Credentials come from ISBN_PLUS_ID, ISBN_PLUS_KEY and ISBN_PLUS_URL (a .env
file in the working directory is read too), a config file, or flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initialize,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.StringVar(&a.creds.AppID, "id", "", "application id (overrides ISBN_PLUS_ID)")
	pf.StringVar(&a.creds.AppKey, "key", "", "application key (overrides ISBN_PLUS_KEY)")
	pf.StringVar(&a.creds.EndpointURL, "url", "", "search endpoint URL (overrides ISBN_PLUS_URL)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newServeCmd(a))

	return root
}

// initialize loads the configuration and sets up logging.
func (a *app) initialize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Credentials.Merge(a.creds)
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logging.Setup(logging.FromConfig(cfg.Logging, cmd.ErrOrStderr()))
	a.cfg = cfg

	return nil
}

// transport builds the HTTP transport from the loaded configuration.
func (a *app) transport() (*client.Client, error) {
	c, err := client.New(client.ConfigFrom(a.cfg.Transport))
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	return c, nil
}
