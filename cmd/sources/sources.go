// Package sources implements the sources command for inspecting the
// configured harvest targets.
package sources

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/cafecrawl/cmd/common"
	internalsources "github.com/jonesrussell/cafecrawl/internal/sources"
)

// Command returns the sources command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage content sources",
	}

	cmd.AddCommand(listCommand())

	return cmd
}

// listCommand creates the list subcommand.
func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configured sources",
		RunE: func(*cobra.Command, []string) error {
			core, err := common.NewCore()
			if err != nil {
				return err
			}

			srcs, err := common.LoadSources(core)
			if err != nil {
				return fmt.Errorf("failed to load sources: %w", err)
			}

			renderTable(srcs)
			return nil
		},
	}
}

// renderTable formats and displays the sources in a table.
func renderTable(srcs []internalsources.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Name", "Base URL", "Boards", "Item Limit", "Lookback Days", "Feed Fallback"})

	for i := range srcs {
		src := &srcs[i]
		feed := "-"
		if src.FeedURL != "" {
			feed = "yes"
		}
		t.AppendRow(table.Row{
			src.Name,
			src.BaseURL,
			len(src.Boards),
			src.ItemLimit,
			src.LookbackDays,
			feed,
		})
	}

	t.Render()
}
