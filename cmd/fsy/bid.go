package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/fieldsync/internal/models"
)

func newBidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bid",
		Short: "Bid management commands",
	}

	cmd.AddCommand(newBidCreateCmd())
	cmd.AddCommand(newBidListCmd())
	cmd.AddCommand(newBidShowCmd())
	cmd.AddCommand(newBidItemCmd())
	cmd.AddCommand(newBidSendCmd())
	cmd.AddCommand(newBidSignCmd())
	cmd.AddCommand(newBidDeleteCmd())
	return cmd
}

func newBidCreateCmd() *cobra.Command {
	var (
		configPath    string
		number        string
		clientID      string
		measurementID string
		tier          string
		title         string
		taxRate       float64
		materialCost  float64
		laborCost     float64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new draft bid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			if taxRate < 0 {
				taxRate = cfg.Pricing.DefaultTaxRate
			}
			b := &models.Bid{
				Number:        number,
				Tier:          tier,
				ProposalTitle: title,
				TaxRate:       taxRate,
				MaterialCost:  materialCost,
				LaborCost:     laborCost,
			}
			if clientID != "" {
				b.ClientID = &clientID
			}
			if measurementID != "" {
				b.MeasurementID = &measurementID
			}
			if err := s.CreateBid(b, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created bid %s (%s)\n", b.LocalID, b.Number)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().StringVar(&number, "number", "", "bid number (required, unique)")
	cmd.Flags().StringVar(&clientID, "client", "", "client ID")
	cmd.Flags().StringVar(&measurementID, "measurement", "", "measurement ID")
	cmd.Flags().StringVar(&tier, "tier", "good", "proposal tier (good, better, best)")
	cmd.Flags().StringVar(&title, "title", "", "proposal title")
	cmd.Flags().Float64Var(&taxRate, "tax-rate", -1, "tax rate, 0-1 (default from config)")
	cmd.Flags().Float64Var(&materialCost, "material", 0, "material cost in dollars")
	cmd.Flags().Float64Var(&laborCost, "labor", 0, "labor cost in dollars")
	cmd.MarkFlagRequired("number")
	return cmd
}

func newBidListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bids",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			bids, err := s.ListBids()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(bids) == 0 {
				fmt.Fprintln(out, "No bids found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tSTATUS\tTIER\tTOTAL\tSTATE")
			for _, b := range bids {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					b.LocalID, b.Number, b.Status, b.Tier, money(b.TotalPrice), b.SyncState)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newBidShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <bid-id>",
		Short: "Show one bid with its line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			b, err := s.GetBid(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Bid %s (%s)\n", b.Number, b.LocalID)
			fmt.Fprintf(out, "Status:   %s (%s tier)\n", b.Status, b.Tier)
			if b.ProposalTitle != "" {
				fmt.Fprintf(out, "Title:    %s\n", b.ProposalTitle)
			}
			fmt.Fprintf(out, "Costs:    material %s, labor %s\n", money(b.MaterialCost), money(b.LaborCost))
			fmt.Fprintf(out, "Subtotal: %s\n", money(b.Subtotal))
			fmt.Fprintf(out, "Tax:      %s (rate %.3f)\n", money(b.TaxAmount), b.TaxRate)
			fmt.Fprintf(out, "Total:    %s (margin %.1f%%)\n", money(b.TotalPrice), b.ProfitMargin*100)
			fmt.Fprintf(out, "Sync:     %s\n", b.SyncState)
			if b.Signature != nil {
				fmt.Fprintf(out, "Signed:   %s at %s\n", b.Signature.SignerName,
					b.Signature.SignedAt.Format("2006-01-02 15:04"))
			}
			if len(b.LineItems) > 0 {
				fmt.Fprintln(out)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "#\tDESCRIPTION\tQTY\tUNIT\tAMOUNT")
				for _, li := range b.LineItems {
					fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\n",
						li.SortOrder, truncate(li.Description, 48), li.Quantity,
						money(li.UnitPrice), money(li.Amount))
				}
				w.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newBidItemCmd() *cobra.Command {
	var (
		configPath  string
		description string
		quantity    float64
		unitPrice   float64
	)

	cmd := &cobra.Command{
		Use:   "item <bid-id>",
		Short: "Add a line item to a bid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			li := &models.BidLineItem{
				Description: description,
				Quantity:    quantity,
				UnitPrice:   unitPrice,
			}
			if err := s.AddLineItem(args[0], li); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added line item %s (%s)\n", li.LocalID, money(li.Amount))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().StringVar(&description, "desc", "", "line item description (required)")
	cmd.Flags().Float64Var(&quantity, "qty", 1, "quantity")
	cmd.Flags().Float64Var(&unitPrice, "price", 0, "unit price in dollars")
	cmd.MarkFlagRequired("desc")
	return cmd
}

func newBidSendCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "send <bid-id>",
		Short: "Mark a draft bid as sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			b, err := s.UpdateBid(args[0], func(b *models.Bid) error {
				b.Status = models.BidSent
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bid %s is now %s\n", b.Number, b.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newBidSignCmd() *cobra.Command {
	var (
		configPath string
		signer     string
	)

	cmd := &cobra.Command{
		Use:   "sign <bid-id>",
		Short: "Record the customer's acceptance signature",
		Long:  "Records the acceptance signature on a sent bid, marking it accepted. A signed bid can no longer be edited.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			sig := &models.BidSignature{SignerName: signer}
			if err := s.SignBid(args[0], sig); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bid %s signed by %s\n", args[0], sig.SignerName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().StringVar(&signer, "signer", "", "signer's name (required)")
	cmd.MarkFlagRequired("signer")
	return cmd
}

func newBidDeleteCmd() *cobra.Command {
	var (
		configPath string
		cascade    bool
	)

	cmd := &cobra.Command{
		Use:   "delete <bid-id>",
		Short: "Delete a bid",
		Long:  "Deletes a bid with its line items and signature. When jobs still reference it, --cascade detaches them instead of failing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := s.DeleteBid(args[0], cascade); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted bid %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().BoolVar(&cascade, "cascade", false, "detach referencing jobs instead of failing")
	return cmd
}
