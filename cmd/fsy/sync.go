package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/fieldsync/internal/config"
	"github.com/zulandar/fieldsync/internal/connectivity"
	"github.com/zulandar/fieldsync/internal/dashboard"
	"github.com/zulandar/fieldsync/internal/notify"
	"github.com/zulandar/fieldsync/internal/notify/discord"
	"github.com/zulandar/fieldsync/internal/notify/slack"
	"github.com/zulandar/fieldsync/internal/remote"
	"github.com/zulandar/fieldsync/internal/syncq"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync queue commands",
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncDrainCmd())
	cmd.AddCommand(newSyncRunCmd())
	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue depth, per-record sync states, and recent conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := openFromConfig(configPath)
			if err != nil {
				return err
			}
			return runSyncStatus(cmd, gdb)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func runSyncStatus(cmd *cobra.Command, gdb *gorm.DB) error {
	out := cmd.OutOrStdout()

	summary, err := dashboard.Summary(gdb)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Queue depth: %d", summary.QueueDepth)
	if summary.Held > 0 {
		fmt.Fprintf(out, " (%d held, awaiting user action)", summary.Held)
	}
	fmt.Fprintln(out)

	if len(summary.Entities) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY\tLOCAL\tPENDING\tIN FLIGHT\tSYNCED\tCONFLICT\tTOTAL")
		for _, ec := range summary.Entities {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				ec.EntityType, ec.Local, ec.PendingPush, ec.InFlight, ec.Synced, ec.Conflict, ec.Total)
		}
		w.Flush()
	}

	changes, err := dashboard.QueueList(gdb)
	if err != nil {
		return err
	}
	if len(changes) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tENTITY\tID\tOP\tATTEMPTS\tLAST ERROR")
		for _, c := range changes {
			attempts := fmt.Sprintf("%d", c.Attempts)
			if c.Held {
				attempts += " (held)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				c.Seq, c.EntityType, c.EntityID, c.Op, attempts, orDash(truncate(c.LastError, 48)))
		}
		w.Flush()
	}

	conflicts, err := dashboard.RecentConflicts(gdb, 5)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		fmt.Fprintln(out, "\nRecent conflicts:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY\tID\tWINNER\tRESOLVED")
		for _, c := range conflicts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				c.EntityType, c.EntityID, c.Winner, c.ResolvedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
	}
	return nil
}

func newSyncDrainCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Push queued changes and pull remote updates once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, err := openFromConfig(configPath)
			if err != nil {
				return err
			}
			d, err := buildDrainer(cfg, gdb)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			report, err := d.Drain(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Drain: pushed=%d deleted=%d conflicts=%d rejected=%d stalled=%d\n",
				report.Pushed, report.Deleted, report.Conflicts, report.Rejected, report.Stalled)

			pull, err := d.Pull(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pull:  applied=%d deleted=%d conflicts=%d skipped=%d\n",
				pull.Applied, pull.Deleted, pull.Conflicts, pull.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newSyncRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the background sync loop until interrupted",
		Long:  "Drains the queue on the configured cron schedule and pulls remote changes each pass. Stops on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, err := openFromConfig(configPath)
			if err != nil {
				return err
			}
			d, err := buildDrainer(cfg, gdb)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Sync loop running (schedule %q), Ctrl-C to stop\n", cfg.Sync.Schedule)
			d.Run(ctx, cfg.Sync.Schedule)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

// buildDrainer wires the remote client, notification fanout, and drainer
// from config. The CLI has no platform connectivity signal, so the monitor
// starts online and stays there.
func buildDrainer(cfg *config.Config, gdb *gorm.DB) (*syncq.Drainer, error) {
	if cfg.Remote.Token == "" {
		return nil, fmt.Errorf("remote.token is required to sync")
	}
	api, err := remote.NewClient(remote.ClientOpts{
		BaseURL: cfg.Remote.BaseURL,
		Tokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Remote.Token}),
		Timeout: cfg.Remote.Timeout,
	})
	if err != nil {
		return nil, err
	}

	adapters, err := buildAdapters(cfg.Notify)
	if err != nil {
		return nil, err
	}

	return syncq.NewDrainer(syncq.DrainerOpts{
		DB:     gdb,
		API:    api,
		Conn:   connectivity.NewMonitor(true),
		Events: notify.NewFanout(nil, adapters...),
		Config: syncq.DrainConfig{
			RetryBudget: cfg.Sync.RetryBudget,
			BaseBackoff: cfg.Sync.BaseBackoff,
			MaxBackoff:  cfg.Sync.MaxBackoff,
		},
		Logger: log.New(os.Stderr, "[sync] ", log.LstdFlags),
	})
}

// buildAdapters assembles the configured notification channels.
func buildAdapters(cfg config.NotifyConfig) ([]notify.Adapter, error) {
	var adapters []notify.Adapter
	if cfg.Command != "" {
		adapters = append(adapters, &notify.CommandAdapter{Command: cfg.Command})
	}
	if cfg.SlackToken != "" {
		a, err := slack.New(cfg.SlackToken, cfg.SlackChannel)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.DiscordToken != "" {
		a, err := discord.New(cfg.DiscordToken, cfg.DiscordChannel)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
