package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/fieldsync/internal/models"
)

func newLeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Lead pipeline commands",
	}

	cmd.AddCommand(newLeadAddCmd())
	cmd.AddCommand(newLeadListCmd())
	cmd.AddCommand(newLeadAdvanceCmd())
	cmd.AddCommand(newLeadDeleteCmd())
	return cmd
}

func newLeadAddCmd() *cobra.Command {
	var (
		configPath string
		name       string
		source     string
		value      float64
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			l := &models.Lead{
				Name:           name,
				Source:         source,
				EstimatedValue: value,
				Notes:          notes,
			}
			if err := s.CreateLead(l); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created lead %s (%s)\n", l.LocalID, l.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().StringVar(&name, "name", "", "lead name (required)")
	cmd.Flags().StringVar(&source, "source", "", "lead source (referral, website, ad, other)")
	cmd.Flags().Float64Var(&value, "value", 0, "estimated value in dollars")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newLeadListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			leads, err := s.ListLeads()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(leads) == 0 {
				fmt.Fprintln(out, "No leads found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSOURCE\tVALUE\tSTATE")
			for _, l := range leads {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					l.LocalID, truncate(l.Name, 32), l.Status, l.Source,
					money(l.EstimatedValue), l.SyncState)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newLeadAdvanceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "advance <lead-id> <status>",
		Short: "Advance a lead through the pipeline",
		Long:  "Moves a lead to a later pipeline status (new, contacted, qualified, quoted, won, lost). Backward moves are rejected; a lost lead can be reopened to new.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			l, err := s.TransitionLead(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lead %s is now %s\n", l.LocalID, l.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newLeadDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <lead-id>",
		Short: "Delete a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := s.DeleteLead(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted lead %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}
