package commands

import (
	"fmt"

	"culturepipe/lib/serviceutil"
	"culturepipe/lib/stages"

	"github.com/spf13/cobra"
)

var linkPlatforms []string

func init() {
	linksCmd.Flags().StringSliceVar(&linkPlatforms, "platforms", nil,
		"platforms to search (glassdoor, indeed, comparably, kununu, ambitionbox); all when unset")
	rootCmd.AddCommand(linksCmd)
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Finds each company's review pages on the supported platforms.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()

		stats, err := stages.FindLinks(cmd.Context(), config, newSearchClient(config), linkPlatforms)
		if err != nil {
			serviceutil.Fatal("review link search failed", err)
		}
		fmt.Print(stats.Summary().Render())
	},
}
