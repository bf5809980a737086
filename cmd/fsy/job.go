package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/fieldsync/internal/models"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Job management commands",
	}

	cmd.AddCommand(newJobCreateCmd())
	cmd.AddCommand(newJobListCmd())
	cmd.AddCommand(newJobAdvanceCmd())
	cmd.AddCommand(newJobDeleteCmd())
	return cmd
}

func newJobCreateCmd() *cobra.Command {
	var (
		configPath string
		title      string
		clientID   string
		bidID      string
		scheduled  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a new job",
		Long:  "Schedules a job, optionally from an accepted bid. Only accepted bids can back a job.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			j := &models.Job{Title: title}
			if clientID != "" {
				j.ClientID = &clientID
			}
			if bidID != "" {
				j.BidID = &bidID
			}
			if scheduled != "" {
				at, err := time.Parse("2006-01-02", scheduled)
				if err != nil {
					return fmt.Errorf("parse --scheduled: %w", err)
				}
				j.ScheduledFor = &at
			}
			if err := s.CreateJob(j); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created job %s (%s)\n", j.LocalID, j.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().StringVar(&title, "title", "", "job title (required)")
	cmd.Flags().StringVar(&clientID, "client", "", "client ID")
	cmd.Flags().StringVar(&bidID, "bid", "", "accepted bid ID")
	cmd.Flags().StringVar(&scheduled, "scheduled", "", "scheduled date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newJobListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			jobs, err := s.ListJobs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tSCHEDULED\tSTATE")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					j.LocalID, truncate(j.Title, 40), j.Status,
					timeOrDash(j.ScheduledFor), j.SyncState)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newJobAdvanceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "advance <job-id> <status>",
		Short: "Advance a job through its lifecycle",
		Long:  "Moves a job to a later status (scheduled, in_progress, punch_list, complete, paid). Backward moves are rejected; paying a bid-backed job posts revenue to the client.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			j, err := s.TransitionJob(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s\n", j.LocalID, j.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newJobDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := s.DeleteJob(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}
