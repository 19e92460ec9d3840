package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	keysCmd.AddCommand(keysStatusCmd)
	keysCmd.AddCommand(keysResetCmd)
	rootCmd.AddCommand(keysCmd)
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspects and manages the scraperapi key pool.",
}

var keysStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints each key's slot and whether it is exhausted.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		keys := newKeyManager(config)
		status := keys.Status()

		exhausted := map[int]bool{}
		for _, i := range status.Exhausted {
			exhausted[i] = true
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Slot", "State"})
		for i := 0; i < status.Total; i++ {
			state := "active"
			if exhausted[i] {
				state = "exhausted"
			}
			if i == status.Current {
				state += " (current)"
			}
			t.AppendRow(table.Row{i + 1, state})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf("%d of %d keys usable\n", status.Active, status.Total)
	},
}

var keysResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clears the exhausted markers, for after a quota refill.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		keys := newKeyManager(config)
		keys.Reset()
		fmt.Printf("reset %d keys\n", keys.Size())
	},
}
