// Command ppo downloads plant phenology observations from the PPO data portal.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/ppo-client/internal/core/config"
	"github.com/mohammed-shakir/ppo-client/internal/logger"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ppo",
		Short:         "Plant phenology portal download client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ppo version %s\n", Version)
		},
	}
}

func newAppLogger(cfg config.Config, component string, out io.Writer) *slog.Logger {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: component,
	}, out)
	return logger.NewSlog(&zl)
}
