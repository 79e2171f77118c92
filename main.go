// Command endpoint-manager is the operator CLI for SageMaker endpoint
// lifecycle: it lists deployable configs, reports endpoint status, and
// deploys or removes endpoints.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/config"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	output     string
	verbose    bool
}

// opener builds the operations behind the commands from loaded config.
type opener func(ctx context.Context, cfg *config.Config, log *slog.Logger) (operations, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(openManager).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "endpoint-manager",
		Short:         "Manage SageMaker inference endpoints",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.output != outputTable && flags.output != outputJSON {
				return fmt.Errorf("--output must be %q or %q", outputTable, outputJSON)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("ENDPOINT_MANAGER_CONFIG"), "Config file path")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", outputTable, "Output format (table or json)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log lifecycle progress to stderr")

	connect := func(cmd *cobra.Command) (operations, error) {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		return open(cmd.Context(), cfg, commandLogger(cmd.ErrOrStderr(), cfg, flags.verbose))
	}

	root.AddCommand(
		newConfigsCmd(flags, connect),
		newStatusCmd(flags, connect),
		newDeployCmd(connect),
		newRemoveCmd(connect),
		newVersionCmd(),
	)
	return root
}

// commandLogger logs to stderr at the configured level when verbose, and
// only warnings otherwise.
func commandLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level, _ = config.ParseLevel(cfg.LogLevel)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "endpoint-manager %s (commit %s, built %s)\n",
				sagemaker.Version, sagemaker.Commit, sagemaker.Date)
		},
	}
}
