package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show full details for one session",
		Args:  cobra.ExactArgs(1),
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
			ses := snap.SessionByID(args[0])
			if ses == nil {
				return fmt.Errorf("unknown session id %q", args[0])
			}

			title := ses.Title
			if ses.Keynote {
				title = "KEYNOTE: " + title
			}
			color.New(color.Bold).Println(title)
			fmt.Printf("%s %s-%s  %s\n",
				ses.Slot.Day,
				ses.Slot.Start.Format("15:04"), ses.Slot.End().Format("15:04"),
				ses.Room)
			if ses.Language != "" || ses.Level != "" {
				fmt.Printf("%s %s\n", ses.Language, ses.Level)
			}
			if len(ses.Tracks) > 0 {
				names := make([]string, 0, len(ses.Tracks))
				for _, id := range ses.Tracks {
					if tr := snap.TrackByID(id); tr != nil {
						names = append(names, tr.Name)
					} else {
						names = append(names, id)
					}
				}
				fmt.Printf("tracks: %s\n", strings.Join(names, ", "))
			}
			if ses.Partial {
				color.Yellow("details not yet fetched, run 'confplan sync'")
			}

			for _, slug := range ses.SpeakerSlugs {
				sp := snap.SpeakerBySlug(slug)
				if sp == nil {
					continue
				}
				fmt.Println()
				line := sp.Name
				if sp.Rating != nil {
					line = sp.Rating.Badge() + " " + line
				}
				if sp.Company != "" {
					line += ", " + sp.Company
				}
				if sp.Country != "" {
					line += " (" + sp.Country + ")"
				}
				fmt.Println(line)
				if sp.Rating != nil && sp.Rating.Note != "" {
					color.Cyan("  %s", sp.Rating.Note)
				}
				if sp.Bio != "" {
					fmt.Println(wrap(sp.Bio, 78))
				}
			}

			if ses.Abstract != "" {
				fmt.Println()
				fmt.Println(wrap(ses.Abstract, 78))
			}
			return nil
		},
	}
}

// wrap breaks text at word boundaries so long abstracts stay readable in a
// terminal.
func wrap(text string, width int) string {
	var b strings.Builder
	line := 0
	for _, word := range strings.Fields(text) {
		if line > 0 && line+1+len(word) > width {
			b.WriteByte('\n')
			line = 0
		} else if line > 0 {
			b.WriteByte(' ')
			line++
		}
		b.WriteString(word)
		line += len(word)
	}
	return b.String()
}
