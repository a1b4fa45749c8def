// Package configs implements the crawl config CLI commands.
package configs

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/regradar/cmd/common"
	"github.com/jonesrussell/regradar/internal/database"
	"github.com/jonesrussell/regradar/internal/domain"
)

const listLimit = 200

// Command returns the configs command group.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage crawl configs",
	}
	cmd.AddCommand(listCommand(cfgFile, debug))
	return cmd
}

func listCommand(cfgFile *string, debug *bool) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List crawl configs in a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			repo := database.NewConfigRepository(deps.DB)
			configs, err := repo.List(cmd.Context(), activeOnly, listLimit, 0)
			if err != nil {
				return err
			}

			renderTable(configs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only show active configs")
	return cmd
}

func renderTable(configs []*domain.CrawlConfig) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Target", "Source URLs", "Transport", "Schedule", "Active"})

	for _, cfg := range configs {
		schedule := ""
		if cfg.TriggerSchedule != nil {
			schedule = *cfg.TriggerSchedule
		}
		t.AppendRow(table.Row{
			cfg.ID,
			cfg.TargetName,
			strings.Join(cfg.SourceURLList(), "\n"),
			cfg.Transport,
			schedule,
			cfg.IsActive,
		})
	}

	t.Render()
}
