package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"confplan/internal/conflict"
	"confplan/internal/model"
)

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Manage your personal session selection",
	}
	cmd.AddCommand(newSelectAddCmd())
	cmd.AddCommand(newSelectRmCmd())
	cmd.AddCommand(newSelectLsCmd())
	return cmd
}

func newSelectAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <session-id>...",
		Short: "Add sessions to the selection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st := openStore(cfg)

			snap, _, err := st.Load()
			if err != nil {
				return err
			}
			sel, err := st.LoadSelection()
			if err != nil {
				return err
			}

			for _, id := range args {
				ses := snap.SessionByID(id)
				if ses == nil {
					return fmt.Errorf("unknown session id %q", id)
				}
				if !sel.Add(id) {
					fmt.Printf("already selected: %s\n", id)
					continue
				}
				fmt.Printf("added %s  %q\n", id, ses.Title)
			}

			warnNewConflicts(sel, snap)
			return st.SaveSelection(sel)
		},
	}
}

func newSelectRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <session-id>...",
		Aliases: []string{"remove"},
		Short:   "Remove sessions from the selection",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st := openStore(cfg)

			sel, err := st.LoadSelection()
			if err != nil {
				return err
			}
			for _, id := range args {
				if !sel.Remove(id) {
					fmt.Printf("not selected: %s\n", id)
					continue
				}
				fmt.Printf("removed %s\n", id)
			}
			return st.SaveSelection(sel)
		},
	}
}

func newSelectLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the current selection in schedule order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st := openStore(cfg)

			snap, _, err := st.Load()
			if err != nil {
				return err
			}
			sel, err := st.LoadSelection()
			if err != nil {
				return err
			}
			if sel.Len() == 0 {
				fmt.Println("selection is empty")
				return nil
			}

			selected, dangling := sel.Sessions(snap)
			conflicted := conflict.ByID(conflict.Find(selected))

			day := ""
			for _, ses := range sortSchedule(selected) {
				if ses.Slot.Day != day {
					day = ses.Slot.Day
					fmt.Printf("\n%s\n", day)
				}
				line := fmt.Sprintf("  %s-%s  %-10s  %s  %q",
					ses.Slot.Start.Format("15:04"), ses.Slot.End().Format("15:04"),
					ses.ID, ses.Room, ses.Title)
				if len(conflicted[ses.ID]) > 0 {
					color.Red("%s  [conflict]", line)
				} else {
					fmt.Println(line)
				}
			}
			if len(dangling) > 0 {
				fmt.Println()
				color.Yellow("no longer on the schedule: %v", dangling)
			}
			return nil
		},
	}
}

func sortSchedule(sessions []model.Session) []model.Session {
	out := make([]model.Session, len(sessions))
	copy(out, sessions)
	model.SortSessions(out)
	return out
}

func warnNewConflicts(sel *model.Selection, snap *model.Snapshot) {
	selected, _ := sel.Sessions(snap)
	if pairs := conflict.Find(selected); len(pairs) > 0 {
		color.Red("warning: selection now has %d overlapping pair(s), run 'confplan status' for details", len(pairs))
	}
}
