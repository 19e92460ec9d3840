package commands

import (
	"fmt"

	"culturepipe/lib/serviceutil"
	"culturepipe/lib/stages"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolves each company's official website via duckduckgo search.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()

		stats, err := stages.Resolve(cmd.Context(), config, newSearchClient(config))
		if err != nil {
			serviceutil.Fatal("website resolution failed", err)
		}
		fmt.Print(stats.Summary().Render())
	},
}
