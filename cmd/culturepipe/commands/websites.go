package commands

import (
	"fmt"
	"time"

	"culturepipe/lib/browser"
	"culturepipe/lib/scrapers/website"
	"culturepipe/lib/serviceutil"
	"culturepipe/lib/stages"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(websitesCmd)
}

var websitesCmd = &cobra.Command{
	Use:   "websites",
	Short: "Crawls each resolved company website and extracts the readable text.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()

		pool := browser.New(config.Website.BrowserTabs)
		if err := pool.Initialize(cmd.Context()); err != nil {
			serviceutil.Fatal("failed to start browser pool", err)
		}
		defer pool.Shutdown()

		crawler := website.NewCrawler(website.Options{
			Renderer:   pool,
			MaxPages:   config.Website.MaxPages,
			MaxRetries: config.Website.MaxRetries,
			Timeout:    time.Duration(config.Website.TimeoutSec) * time.Second,
		})

		stats, err := stages.ScrapeWebsites(cmd.Context(), config, crawler)
		if err != nil {
			serviceutil.Fatal("website scrape failed", err)
		}
		fmt.Print(stats.Summary().Render())
	},
}
