package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/alertroute/pkg/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			c := newClient()
			out := cmd.OutOrStdout()

			health, err := c.Health(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "[+] server %s\n", health.Status)

			ready, err := c.Ready(ctx)
			if err != nil {
				if apiErr, ok := client.AsAPIError(err); ok && apiErr.IsUnavailable() {
					fmt.Fprintf(out, "[-] not ready: %s\n", apiErr.Message)
				}
				return err
			}
			fmt.Fprintf(out, "[+] database %s\n", ready.Database)
			if len(ready.Media) == 0 {
				fmt.Fprintln(out, "[-] no delivery media registered")
				return nil
			}
			fmt.Fprintf(out, "[+] media: %s\n", strings.Join(ready.Media, ", "))
			return nil
		},
	}
}

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Resolve or send incident events",
	}

	cmd.AddCommand(newEventResolveCmd())
	cmd.AddCommand(newEventSendCmd())

	return cmd
}

func newEventResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <event-file>",
		Short: "Show the destinations an event would be delivered to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(args[0])
			if err != nil {
				return err
			}
			if len(events) != 1 {
				return fmt.Errorf("expected exactly one event, got %d", len(events))
			}

			resp, err := newClient().Events().Resolve(context.Background(), events[0])
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(cmd.OutOrStdout(), resp)
			}

			table := NewTable(cmd.OutOrStdout(), "ID", "USER", "MEDIA", "LABEL", "SETTINGS")
			for _, d := range resp.Destinations {
				table.AddRow(
					fmt.Sprintf("%d", d.ID),
					fmt.Sprintf("%d", d.UserID),
					d.Media,
					d.Label,
					string(d.Settings),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newEventSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <event-file>",
		Short: "Send one event, or a list of events as a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadEvents(args[0])
			if err != nil {
				return err
			}

			c := newClient()
			var resp *client.AcceptedResponse
			if len(events) == 1 {
				resp, err = c.Events().Send(context.Background(), events[0])
			} else {
				resp, err = c.Events().SendBatch(context.Background(), events)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] %d event(s) accepted\n", resp.Accepted)
			for _, r := range resp.Rejected {
				fmt.Fprintf(cmd.OutOrStdout(), "[-] event #%d (id %d) rejected: %s\n", r.Index, r.EventID, r.Reason)
			}
			return nil
		},
	}
}

// loadEvents reads one event object or a list of events
func loadEvents(path string) ([]*client.Event, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if doc[0] == '[' {
		var events []*client.Event
		if err := json.Unmarshal(doc, &events); err != nil {
			return nil, fmt.Errorf("invalid events file: %w", err)
		}
		return events, nil
	}
	var e client.Event
	if err := json.Unmarshal(doc, &e); err != nil {
		return nil, fmt.Errorf("invalid event file: %w", err)
	}
	return []*client.Event{&e}, nil
}
