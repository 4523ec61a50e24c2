package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"floorwatch/diagnostics"
	"floorwatch/fleet"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	server := os.Getenv("FLOORWATCH_URL")
	if server == "" {
		server = "http://localhost:8082"
	}

	root := &cobra.Command{
		Use:          "floorctl",
		Short:        "Command-line client for a FloorWatch dashboard",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&server, "server", server, "FloorWatch base URL (env FLOORWATCH_URL)")
	client := func() *apiClient { return newAPIClient(server) }

	root.AddCommand(
		listCmd(client),
		getCmd(client),
		controlCmd(client, fleet.ActionStart),
		controlCmd(client, fleet.ActionStop),
		controlCmd(client, fleet.ActionRestart),
		statsCmd(client),
		diagnoseCmd(client),
	)
	return root
}

func machineArg(args []string) (int, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid machine ID %q", args[0])
	}
	return id, nil
}

func listCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var machines []fleet.Machine
			if err := client().do("GET", "/api/machines", nil, &machines); err != nil {
				return err
			}
			printMachines(cmd.OutOrStdout(), machines)
			return nil
		},
	}
}

func printMachines(out io.Writer, machines []fleet.Machine) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tLOCATION\tSTATUS\tPERF\tTEMP")
	for _, m := range machines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.0f%%\t%.0f°C\n",
			m.ID, m.Name, m.Type, m.Location, m.Status, m.Performance, m.Temperature)
	}
	tw.Flush()
}

func getCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := machineArg(args)
			if err != nil {
				return err
			}
			var m fleet.Machine
			if err := client().do("GET", fmt.Sprintf("/api/machines/%d", id), nil, &m); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (#%d)\n", m.Name, m.ID)
			fmt.Fprintf(out, "  type:             %s\n", m.Type)
			fmt.Fprintf(out, "  location:         %s\n", m.Location)
			fmt.Fprintf(out, "  status:           %s\n", m.Status)
			fmt.Fprintf(out, "  performance:      %.0f%%\n", m.Performance)
			fmt.Fprintf(out, "  temperature:      %.0f°C\n", m.Temperature)
			fmt.Fprintf(out, "  uptime:           %.1f%%\n", m.Uptime)
			fmt.Fprintf(out, "  last maintenance: %s\n", m.LastMaintenance)
			fmt.Fprintf(out, "  last update:      %s\n", m.LastUpdate)
			for _, e := range m.Errors {
				fmt.Fprintf(out, "  error:            %s\n", e)
			}
			return nil
		},
	}
}

func controlCmd(client func() *apiClient, action fleet.Action) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " ID",
		Short: fmt.Sprintf("Send %s to a machine", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := machineArg(args)
			if err != nil {
				return err
			}
			var m fleet.Machine
			body := map[string]fleet.Action{"action": action}
			if err := client().do("POST", fmt.Sprintf("/api/machines/%d/control", id), body, &m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, performance %.0f%%\n", m.Name, m.Status, m.Performance)
			return nil
		},
	}
}

func statsCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fleet counts and average performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var s fleet.Stats
			if err := client().do("GET", "/api/stats", nil, &s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total %d, running %d, idle %d, maintenance %d, average %d%%\n",
				s.Total, s.Running, s.Idle, s.Maintenance, s.RoundedAverage)
			return nil
		},
	}
}

func diagnoseCmd(client func() *apiClient) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "diagnose ID",
		Short: "Run remote diagnostics and wait for the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := machineArg(args)
			if err != nil {
				return err
			}
			c := client()
			var run diagnostics.Run
			if err := c.do("POST", fmt.Sprintf("/api/machines/%d/diagnostics", id), nil, &run); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			deadline := time.Now().Add(timeout)
			for !run.Done {
				if time.Now().After(deadline) {
					return fmt.Errorf("diagnostics %s still at %d%% after %v", run.ID, run.Progress, timeout)
				}
				time.Sleep(100 * time.Millisecond)
				if err := c.do("GET", "/api/diagnostics/"+run.ID, nil, &run); err != nil {
					return err
				}
				if run.Cancelled {
					return fmt.Errorf("diagnostics %s was cancelled", run.ID)
				}
			}

			passed, warnings, failed := diagnostics.Summary(run.Results)
			fmt.Fprintf(out, "%d passed, %d warnings, %d failed\n", passed, warnings, failed)
			for _, r := range run.Results {
				fmt.Fprintf(out, "  [%s] %s: %s\n", r.Status, r.Name, r.Message)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the report")
	return cmd
}
