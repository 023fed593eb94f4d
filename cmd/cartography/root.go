package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/cartography/internal/cli"
	"github.com/aretw0/cartography/internal/config"
	"github.com/spf13/cobra"
)

// cfg and logger are populated by the root PersistentPreRunE.
var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cartography",
	Short: "Cartography animates AI reasoning as a growing graph",
	Long: `Cartography turns a query into an animated reasoning graph.
Steps come from a mock, a scripted scenario, an external agent process or an LLM,
and are shown in the terminal, over HTTP (3D view, Mermaid, SSE) or through MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, &loaded); err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		logger, err = cli.NewLogger(cfg.Log, os.Stderr)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to cartography.yaml (default: ./"+config.DefaultFile+" when present)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("source", "", "Step source: auto, mock, scenario, process, gemini, openai")
	flags.String("model", "", "LLM model name")
	flags.String("scenarios", "", "Scenario file for the scenario source")
	flags.String("scenario", "", "Scenario name to pin")
	flags.String("agents", "", "Agents file for the process source")
	flags.String("agent", "", "Agent name for the process source")
	flags.String("archive", "", "Run archive backend: none, memory, file, redis")
	flags.String("archive-dir", "", "Directory of the file archive")
	flags.String("redis", "", "Redis address of the redis archive")
}

// applyFlags overlays explicitly set flags on top of file and env configuration.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	str := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	str("log-level", &c.Log.Level)
	str("log-format", &c.Log.Format)
	str("source", &c.Source.Provider)
	str("model", &c.Source.Model)
	str("scenarios", &c.Source.Scenarios)
	str("scenario", &c.Source.Scenario)
	str("agents", &c.Source.Agents)
	str("agent", &c.Source.Agent)
	str("archive", &c.Archive.Backend)
	str("archive-dir", &c.Archive.Dir)
	str("redis", &c.Archive.RedisAddr)

	// A provider chosen on the command line still picks up its key from the environment.
	if cmd.Flags().Changed("source") && c.Source.APIKey == "" {
		return c.ApplyEnv(func(key string) (string, bool) {
			if key == "GEMINI_API_KEY" || key == "OPENAI_API_KEY" {
				return os.LookupEnv(key)
			}
			return "", false
		})
	}
	return nil
}
