package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/fieldsync/internal/capture"
)

func newMeasurementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "measurement",
		Short: "Measurement management commands",
	}

	cmd.AddCommand(newMeasurementAddCmd())
	cmd.AddCommand(newMeasurementListCmd())
	cmd.AddCommand(newMeasurementShowCmd())
	cmd.AddCommand(newMeasurementDeleteCmd())
	return cmd
}

func newMeasurementAddCmd() *cobra.Command {
	var (
		configPath string
		label      string
		clientID   string
		areaSpecs  []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a measurement by hand",
		Long:  "Records a measurement with manually entered areas. Each --area takes NAME=SQFT; polygon capture comes in through the device pipeline, not this command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			payload := &capture.MeasurementPayload{Label: label, ClientID: clientID}
			for _, spec := range areaSpecs {
				a, err := parseAreaSpec(spec)
				if err != nil {
					return err
				}
				payload.Areas = append(payload.Areas, a)
			}
			m, err := capture.Intake(s, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created measurement %s (%s, %.1f sq ft)\n", m.LocalID, m.Label, m.TotalArea)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().StringVar(&label, "label", "", "measurement label (required)")
	cmd.Flags().StringVar(&clientID, "client", "", "owning client ID")
	cmd.Flags().StringArrayVar(&areaSpecs, "area", nil, "area as NAME=SQFT, repeatable (required)")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("area")
	return cmd
}

// parseAreaSpec parses a NAME=SQFT flag value.
func parseAreaSpec(spec string) (capture.AreaPayload, error) {
	name, sqft, ok := strings.Cut(spec, "=")
	if !ok {
		return capture.AreaPayload{}, fmt.Errorf("area %q: want NAME=SQFT", spec)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(sqft), 64)
	if err != nil {
		return capture.AreaPayload{}, fmt.Errorf("area %q: bad square footage: %w", spec, err)
	}
	return capture.AreaPayload{Name: strings.TrimSpace(name), SquareFeet: v}, nil
}

func newMeasurementListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List measurements",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			var measurements []measurementRow
			if err := s.DB().Table("measurements").
				Select("local_id, label, total_area, sync_state").
				Order("created_at ASC").Find(&measurements).Error; err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(measurements) == 0 {
				fmt.Fprintln(out, "No measurements found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tTOTAL SQFT\tSTATE")
			for _, m := range measurements {
				fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\n",
					m.LocalID, truncate(m.Label, 40), m.TotalArea, m.SyncState)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

type measurementRow struct {
	LocalID   string
	Label     string
	TotalArea float64
	SyncState string
}

func newMeasurementShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <measurement-id>",
		Short: "Show one measurement with its areas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			m, err := s.GetMeasurement(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Measurement %s\n", m.LocalID)
			fmt.Fprintf(out, "Label:      %s\n", m.Label)
			fmt.Fprintf(out, "Total area: %.1f sq ft\n", m.TotalArea)
			if m.ClientID != nil {
				fmt.Fprintf(out, "Client:     %s\n", *m.ClientID)
			}
			fmt.Fprintf(out, "Sync:       %s\n", m.SyncState)
			if len(m.Areas) > 0 {
				fmt.Fprintln(out)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "#\tAREA\tSQFT")
				for _, a := range m.Areas {
					fmt.Fprintf(w, "%d\t%s\t%.1f\n", a.SortOrder, a.Name, a.SquareFeet)
				}
				w.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func newMeasurementDeleteCmd() *cobra.Command {
	var (
		configPath string
		cascade    bool
	)

	cmd := &cobra.Command{
		Use:   "delete <measurement-id>",
		Short: "Delete a measurement and its areas",
		Long:  "Deletes a measurement. When bids still reference it, --cascade detaches them instead of failing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := storeFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := s.DeleteMeasurement(args[0], cascade); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted measurement %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	cmd.Flags().BoolVar(&cascade, "cascade", false, "detach referencing bids instead of failing")
	return cmd
}
