package commands

import (
	"fmt"

	"culturepipe/lib/scrapers/duckduckgo"
	"culturepipe/lib/serviceutil"
	"culturepipe/lib/stages"

	"github.com/spf13/cobra"
)

var retryAltNames bool

func init() {
	retryCmd.Flags().BoolVar(&retryAltNames, "alt-names", false,
		"search again under looser spellings of the company name when the recorded url still fails")
	rootCmd.AddCommand(retryCmd)
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-runs every target in the review failure log.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()

		var search *duckduckgo.Client
		if retryAltNames {
			search = newSearchClient(config)
		}

		stats, err := stages.RetryFailed(cmd.Context(), config, newScrapeDeps(config), search, retryAltNames)
		if err != nil {
			serviceutil.Fatal("retry pass failed", err)
		}
		fmt.Print(stats.Summary().Render())
	},
}
