package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/cartography"
	"github.com/aretw0/cartography/internal/cli"
	"github.com/aretw0/cartography/internal/presentation/tui"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/driver"
	"github.com/aretw0/cartography/pkg/graph"
	"github.com/aretw0/cartography/pkg/observability"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Animate a reasoning run in the terminal",
	Long: `Runs one query through the configured step source and prints each node as it
is added to the graph. Use --json for machine-readable output and --mermaid to
print the final graph as a Mermaid flowchart.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		steps, _ := cmd.Flags().GetInt("steps")
		delay, _ := cmd.Flags().GetDuration("delay")
		chaining, _ := cmd.Flags().GetString("chaining")
		jsonOut, _ := cmd.Flags().GetBool("json")
		noBanner, _ := cmd.Flags().GetBool("no-banner")
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		if !cmd.Flags().Changed("steps") {
			steps = cfg.Run.Steps
		}
		if !cmd.Flags().Changed("delay") {
			delay = cfg.Run.Delay
		}
		if !cmd.Flags().Changed("chaining") {
			chaining = cfg.Run.Chaining
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source, err := cli.BuildSource(cfg.Source, logger)
		if err != nil {
			return err
		}
		archive, closeArchive, err := cli.BuildArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		defer closeArchive()

		opts := []cartography.Option{
			cartography.WithLogger(logger),
			cartography.WithHooks(observability.LogHooks(logger)),
			cartography.WithSessionID("cli"),
		}
		if archive != nil {
			opts = append(opts, cartography.WithArchive(archive))
		}
		if strings.EqualFold(cfg.Run.NodeIDs, "sequential") {
			opts = append(opts, cartography.WithNodeIDs(graph.Sequential))
		}
		if delay == 0 {
			opts = append(opts, cartography.WithPacer(driver.NoopPacer{}))
		}
		v := cartography.New(source, opts...)

		out := cmd.OutOrStdout()
		runner := &cartography.Runner{Output: out, JSON: jsonOut}
		if !jsonOut {
			if !noBanner {
				tui.PrintBanner(out)
			}
			printer := tui.NewStepPrinter(out)
			runner.Step = printer.PrintStep
			runner.Finish = printer.PrintResult
		}

		res, err := runner.Run(ctx, v, domain.RunRequest{
			Query:    query,
			Steps:    steps,
			Delay:    delay,
			Chaining: domain.ChainPolicy(chaining),
		})
		if err != nil {
			return err
		}

		if mermaid && !jsonOut {
			fmt.Fprintln(out)
			fmt.Fprint(out, v.Mermaid())
		}
		if archive != nil && !jsonOut {
			fmt.Fprintf(out, "archived as %s\n", res.RunID)
		}
		if res.Status == domain.StatusFailed {
			return fmt.Errorf("run failed: %s", res.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntP("steps", "n", driver.DefaultSteps, "Number of reasoning steps")
	runCmd.Flags().Duration("delay", 0, "Pause between steps (e.g. 500ms); 0 disables pacing")
	runCmd.Flags().String("chaining", "", "Edge policy: linear or branch")
	runCmd.Flags().Bool("json", false, "Print one JSON event per line")
	runCmd.Flags().Bool("no-banner", false, "Do not print the banner")
	runCmd.Flags().Bool("mermaid", false, "Print the final graph as Mermaid")
}
