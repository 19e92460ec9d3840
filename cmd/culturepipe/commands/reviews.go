package commands

import (
	"fmt"

	"culturepipe/lib/serviceutil"
	"culturepipe/lib/stages"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reviewsCmd)
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Scrapes review content from each company's review pages through the proxy.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()

		stats, err := stages.ScrapeReviews(cmd.Context(), config, newScrapeDeps(config))
		if err != nil {
			serviceutil.Fatal("review scrape failed", err)
		}
		fmt.Print(stats.Summary().Render())
	},
}
