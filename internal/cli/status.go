package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"confplan/internal/conflict"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show snapshot freshness, selection size and conflicts",
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

			fmt.Printf("data source:   %s\n", source)
			fmt.Printf("fetched at:    %s\n", snap.FetchedAt.Format("2006-01-02 15:04 MST"))
			fmt.Printf("sessions:      %d\n", len(snap.Sessions))
			fmt.Printf("speakers:      %d\n", len(snap.Speakers))
			fmt.Printf("tracks:        %d\n", len(snap.Tracks))
			fmt.Printf("selected:      %d\n", sel.Len())

			selected, dangling := sel.Sessions(snap)
			if pairs := conflict.Find(selected); len(pairs) > 0 {
				color.Red("conflicts:     %d overlapping pair(s)", len(pairs))
				for _, p := range pairs {
					color.Red("  %s %s-%s  %q / %q",
						p.A.Slot.Day,
						p.A.Slot.Start.Format("15:04"), p.A.Slot.End().Format("15:04"),
						p.A.Title, p.B.Title)
				}
			} else {
				fmt.Println("conflicts:     none")
			}
			if len(dangling) > 0 {
				color.Yellow("dangling:      %v (selected but not on the schedule)", dangling)
			}
			return nil
		},
	}
}
