package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

func newCheckFallbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-fallback <file>",
		Short: "Validate a fallback filter document (JSON or YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			c, err := evaluator.LoadFallback(raw, validator.New())
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "[-] %v\n", err)
				return fmt.Errorf("fallback filter rejected")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] fallback filter OK: %s\n", c.Legacy())
			return nil
		},
	}
}

func newPreviewCmd() *cobra.Command {
	var filterFile, incidentsFile, fallbackFile string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Evaluate a filter against a file of incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCriteria(filterFile)
			if err != nil {
				return err
			}
			if problems := evaluator.ValidateCriteria(validator.New(), c); len(problems) > 0 {
				return fmt.Errorf("invalid filter: %s", problems[0].Message)
			}

			eval := evaluator.NoFallback()
			if fallbackFile != "" {
				raw, err := os.ReadFile(fallbackFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", fallbackFile, err)
				}
				fb, err := evaluator.LoadFallback(raw, validator.New())
				if err != nil {
					return err
				}
				eval = evaluator.New(fb)
			}

			doc, err := readDocument(incidentsFile)
			if err != nil {
				return err
			}
			var incidents []*incident.Incident
			if err := json.Unmarshal(doc, &incidents); err != nil {
				return fmt.Errorf("invalid incidents file: %w", err)
			}

			matched := eval.Preview(c, incidents)
			if getOutputFormat() != "table" {
				return printOutput(cmd.OutOrStdout(), matched)
			}

			table := NewTable(cmd.OutOrStdout(), "ID", "LEVEL", "OPEN", "ACKED", "STATEFUL", "SOURCE", "TAGS")
			for _, inc := range matched {
				table.AddRow(
					fmt.Sprintf("%d", inc.ID),
					formatLevel(inc.Level),
					yesNo(inc.Open),
					yesNo(inc.Acked),
					yesNo(inc.Stateful),
					fmt.Sprintf("%d", inc.SourceID),
					strings.Join(inc.Tags, ","),
				)
			}
			table.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d incidents match\n", len(matched), len(incidents))
			return nil
		},
	}

	cmd.Flags().StringVar(&filterFile, "filter", "", "filter document file (JSON or YAML)")
	cmd.Flags().StringVar(&incidentsFile, "incidents", "", "incidents file (JSON or YAML list)")
	cmd.Flags().StringVar(&fallbackFile, "fallback", "", "fallback filter document file")
	_ = cmd.MarkFlagRequired("filter")
	_ = cmd.MarkFlagRequired("incidents")

	return cmd
}

func newCoversCmd() *cobra.Command {
	var timeslotFile, at, zone string

	cmd := &cobra.Command{
		Use:   "covers",
		Short: "Check whether a timeslot covers a moment",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(timeslotFile)
			if err != nil {
				return err
			}
			var ts timeslot.Timeslot
			if err := json.Unmarshal(doc, &ts); err != nil {
				return fmt.Errorf("invalid timeslot file: %w", err)
			}

			moment := time.Now()
			if at != "" {
				if moment, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at must be an RFC3339 timestamp: %w", err)
				}
			}

			if zone == "" {
				zone = viper.GetString("time_zone")
			}
			loc, err := time.LoadLocation(zone)
			if err != nil {
				return fmt.Errorf("invalid time zone %q: %w", zone, err)
			}

			covers := ts.Covers(moment, loc)
			if getOutputFormat() != "table" {
				return printOutput(cmd.OutOrStdout(), map[string]interface{}{
					"timeslot": ts.Name,
					"at":       moment.In(loc).Format(time.RFC3339),
					"covers":   covers,
				})
			}

			verdict := "does not cover"
			if covers {
				verdict = "covers"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%q %s %s\n", ts.Name, verdict, moment.In(loc).Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&timeslotFile, "timeslot", "", "timeslot file (JSON or YAML)")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 timestamp (default now)")
	cmd.Flags().StringVar(&zone, "tz", "", "time zone of the recurrences (default from config)")
	_ = cmd.MarkFlagRequired("timeslot")

	return cmd
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <criteria>",
		Short: "Print the native and legacy forms of a filter document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := filter.ParseCriteria([]byte(args[0]))
			if err != nil {
				return err
			}
			if problems := evaluator.ValidateCriteria(validator.New(), c); len(problems) > 0 {
				return fmt.Errorf("invalid filter: %s", problems[0].Message)
			}

			native, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(cmd.OutOrStdout(), map[string]interface{}{
					"filter": json.RawMessage(native),
					"legacy": c.Legacy(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "native: %s\nlegacy: %q\n", native, c.Legacy())
			return nil
		},
	}
}

// loadCriteria reads a filter document file in either representation
func loadCriteria(path string) (filter.Criteria, error) {
	doc, err := readDocument(path)
	if err != nil {
		return filter.Criteria{}, err
	}
	return filter.ParseCriteria(doc)
}
