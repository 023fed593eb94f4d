package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/cartography/internal/cli"
	"github.com/aretw0/cartography/internal/presentation/tui"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/aretw0/cartography/pkg/projector"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived runs",
}

var runsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List archived runs, oldest first",
	Args:    cobra.NoArgs,
	RunE: withArchive(func(ctx context.Context, cmd *cobra.Command, store ports.RunStore, _ []string) error {
		ids, err := store.List(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTATUS\tNODES\tSTARTED\tQUERY")
		for _, id := range ids {
			record, err := store.Load(ctx, id)
			if err != nil {
				// Expired between List and Load.
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", record.RunID, record.Status, len(record.Snapshot.Nodes),
				record.StartedAt.Format("2006-01-02 15:04:05"), record.Query)
		}
		return w.Flush()
	}),
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Show an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: withArchive(func(ctx context.Context, cmd *cobra.Command, store ports.RunStore, args []string) error {
		record, err := store.Load(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		}

		render, err := tui.NewRenderer("", 100)
		if err != nil {
			return err
		}
		md := tui.Summary(record)
		rendered, err := render(md)
		if err != nil {
			rendered = md
		}
		fmt.Fprint(out, rendered)
		return nil
	}),
}

var runsRemoveCmd = &cobra.Command{
	Use:     "rm <run-id>...",
	Aliases: []string{"delete"},
	Short:   "Delete archived runs",
	Args:    cobra.MinimumNArgs(1),
	RunE: withArchive(func(ctx context.Context, cmd *cobra.Command, store ports.RunStore, args []string) error {
		var errs []error
		for _, id := range args {
			if err := store.Delete(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		}
		return errors.Join(errs...)
	}),
}

var runsGraphCmd = &cobra.Command{
	Use:   "graph <run-id>",
	Short: "Export an archived run as a Mermaid diagram or a renderer frame",
	Args:  cobra.ExactArgs(1),
	RunE: withArchive(func(ctx context.Context, cmd *cobra.Command, store ports.RunStore, args []string) error {
		record, err := store.Load(ctx, args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), projector.Mermaid(record.Snapshot, nil))
			return nil
		case "json":
			return json.NewEncoder(cmd.OutOrStdout()).Encode(projector.Project(record.Snapshot))
		}
		return fmt.Errorf("unknown format %q (mermaid, json)", format)
	}),
}

// withArchive opens the configured archive around fn.
func withArchive(fn func(context.Context, *cobra.Command, ports.RunStore, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		store, closeArchive, err := cli.BuildArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		defer closeArchive()
		if store == nil {
			return errors.New("no run archive configured (set archive.backend or --archive)")
		}
		return fn(ctx, cmd, store, args)
	}
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsInspectCmd, runsRemoveCmd, runsGraphCmd)

	runsInspectCmd.Flags().Bool("json", false, "Print the raw record as JSON")
	runsGraphCmd.Flags().String("format", "mermaid", "Output format: mermaid or json")
}
