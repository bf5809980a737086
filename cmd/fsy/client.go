package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/fieldsync/internal/models"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Client management commands",
	}

	cmd.AddCommand(newClientAddCmd())
	cmd.AddCommand(newClientListCmd())
	cmd.AddCommand(newClientShowCmd())
	cmd.AddCommand(newClientDeleteCmd())
	return cmd
}

func newClientAddCmd() *cobra.Command {
	var (
		configPath string
		first      string
		last       string
		company    string
		email      string
		phone      string
		address    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new client",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			c := &models.Client{
				FirstName: first,
				LastName:  last,
				Company:   company,
				Email:     email,
				Phone:     phone,
				Address:   address,
			}
			if err := s.CreateClient(c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created client %s (%s)\n", c.LocalID, c.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().StringVar(&first, "first", "", "first name")
	cmd.Flags().StringVar(&last, "last", "", "last name")
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&address, "address", "", "street address")
	return cmd
}

func newClientListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			clients, err := s.ListClients()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(clients) == 0 {
				fmt.Fprintln(out, "No clients found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tSTATE\tREVENUE")
			for _, c := range clients {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.LocalID, truncate(c.DisplayName(), 32), orDash(c.Email), orDash(c.Phone),
					c.SyncState, money(c.TotalRevenue))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newClientShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show one client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			c, err := s.GetClient(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Client %s\n", c.LocalID)
			fmt.Fprintf(out, "Name:    %s\n", c.DisplayName())
			fmt.Fprintf(out, "Email:   %s\n", orDash(c.Email))
			fmt.Fprintf(out, "Phone:   %s\n", orDash(c.Phone))
			fmt.Fprintf(out, "Address: %s\n", orDash(c.Address))
			fmt.Fprintf(out, "Revenue: %s\n", money(c.TotalRevenue))
			fmt.Fprintf(out, "Sync:    %s", c.SyncState)
			if c.BackendID != "" {
				fmt.Fprintf(out, " (remote %s)", c.BackendID)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newClientDeleteCmd() *cobra.Command {
	var (
		configPath string
		cascade    bool
	)

	cmd := &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete a client",
		Long:  "Deletes a client. A client with measurements, bids, or jobs requires --cascade, which deletes the whole subtree.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := s.DeleteClient(args[0], cascade); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted client %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().BoolVar(&cascade, "cascade", false, "delete owned measurements, bids, and jobs too")
	return cmd
}
