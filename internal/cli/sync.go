package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"confplan/internal/config"
	"confplan/internal/log"
	"confplan/internal/scrape"
	"confplan/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scrape the conference site and refresh the local snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !watch {
				return runSync(ctx, cfg)
			}

			c := cron.New()
			if _, err := c.AddFunc(cfg.RefreshCron, func() {
				if err := runSync(ctx, cfg); err != nil {
					log.Error("scheduled sync failed", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}

			log.Info("watch mode started", "schedule", cfg.RefreshCron)
			if err := runSync(ctx, cfg); err != nil {
				log.Error("initial sync failed", err)
			}
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			log.Info("watch mode stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false,
		"keep running and re-sync on the configured cron schedule")
	return cmd
}

func runSync(ctx context.Context, cfg *config.Config) error {
	scraper := scrape.New(ctx, cfg)
	defer scraper.Close()

	syncer := sync.New(cfg, openStore(cfg), scraper)
	report, err := syncer.Run(ctx)
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			color.Yellow("another sync is already running, skipping")
			return nil
		}
		return err
	}

	fmt.Println(report.Summary())
	if n := report.FailedItems(); n > 0 {
		color.Yellow("%d item(s) could not be fetched and were kept partial", n)
	}
	if len(report.Dangling) > 0 {
		color.Yellow("selected sessions no longer on the schedule: %v", report.Dangling)
	}
	return nil
}
