package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"confplan/internal/export"
)

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the selected sessions to an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st := openStore(cfg)

			snap, source, err := st.Load()
			if err != nil {
				return err
			}
			sel, err := st.LoadSelection()
			if err != nil {
				return err
			}
			if sel.Len() == 0 {
				fmt.Println("nothing selected, nothing to export")
				return nil
			}

			res, err := export.Build(sel, snap)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = cfg.ExportFile
			}
			if err := export.WriteFile(path, res); err != nil {
				return err
			}

			fmt.Printf("wrote %d event(s) to %s (data source: %s)\n",
				res.EventCount, path, source)
			if len(res.Dangling) > 0 {
				color.Yellow("skipped %d selected id(s) missing from the schedule: %v",
					len(res.Dangling), res.Dangling)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "",
		"output path (defaults to the configured export file)")
	return cmd
}
