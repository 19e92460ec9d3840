// Package commands wires the pipeline stages into the culturepipe CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"culturepipe/lib/configutil"
	"culturepipe/lib/keypool"
	"culturepipe/lib/notify"
	"culturepipe/lib/restyutil"
	"culturepipe/lib/reviewstore"
	"culturepipe/lib/reviewstore/db"
	"culturepipe/lib/scrapers/duckduckgo"
	"culturepipe/lib/scrapers/scraperapi"
	"culturepipe/lib/serviceutil"
	"culturepipe/lib/stages"
	"culturepipe/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "culturepipe",
	Short: "culturepipe collects company culture data: official websites, employee reviews, and company site text.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "path to the pipeline config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func Execute() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "culturepipe")
	if os.IsNotExist(err) {
		// no telemetry.json5, run with the no-op global providers
	} else if err != nil {
		serviceutil.Fatal("failed to set up telemetry", err)
	} else {
		telemetry.InstrumentPerfStats(ctx)
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				slog.Warn("telemetry shutdown failed", "err", err)
			}
		}()
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() stages.Config {
	config, err := configutil.ReadConfig[stages.Config](configPath)
	if os.IsNotExist(err) {
		slog.Info("no config file found, using defaults", "path", configPath)
	} else if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	config.ApplyDefaults()
	return config
}

func newSearchClient(config stages.Config) *duckduckgo.Client {
	return duckduckgo.NewClient(duckduckgo.Options{
		Region:     config.Search.Region,
		MaxRetries: config.Search.MaxRetries,
	})
}

func newKeyManager(config stages.Config) *keypool.Manager {
	return keypool.New(config.ScraperApi.Keys, config.Data.KeyStateJson)
}

func newScrapeDeps(config stages.Config) stages.ReviewScrapeDeps {
	keys := newKeyManager(config)
	if keys.Size() == 0 {
		serviceutil.Fatal("no api keys configured",
			fmt.Errorf("set scraperapi.keys in %s", configPath))
	}

	var debugOutput restyutil.InstrumentOutput
	if config.Data.DebugDir != "" {
		debugOutput = restyutil.NewFilesystemOutput(config.Data.DebugDir)
	}
	client := scraperapi.NewClient(scraperapi.Options{
		Endpoint:    config.ScraperApi.Endpoint,
		Keys:        keys,
		DebugOutput: debugOutput,
	})

	return stages.ReviewScrapeDeps{
		Fetcher:  client,
		Keys:     keys,
		Store:    openStore(config),
		Notifier: notify.NewNotifier(config.Notify),
	}
}

// openStore returns nil when no database is configured, which keeps the
// pipeline runnable off the JSON artifacts alone.
func openStore(config stages.Config) *reviewstore.Store {
	if config.Database.File == "" && config.Database.Url == "" {
		return nil
	}
	database, err := config.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	if _, err := database.Exec(db.Schema); err != nil {
		serviceutil.Fatal("failed to apply database schema", err)
	}
	store := reviewstore.NewStore(database)
	return &store
}
