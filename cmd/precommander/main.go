package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bdobrica/precommander/common/version"
	"github.com/bdobrica/precommander/internal/precommander/app"
	"github.com/bdobrica/precommander/internal/precommander/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "precommander",
	Short: "Moderation slash commands for the xchat console",
	Long: `precommander attaches to an operator's xchat text page and intercepts
moderation commands (/note, /unnote, /showip, /ban, /unban, /clearnick).
Each one is carried out against the legacy admin pages and replaced by a
single private reply; every other line is sent to the chat unchanged.

Configuration is read from PRECOMMANDER_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		app.SetupLogging(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read chat lines from stdin and submit them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := attach(ctx)
		if err != nil {
			return err
		}
		return a.Run(ctx, os.Stdin, cmd.OutOrStdout())
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <line>",
	Short: "Submit a single chat line",
	Example: `  precommander exec /note bob troublemaker
  precommander exec "/ban carol spam v místnosti"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := attach(cmd.Context())
		if err != nil {
			return err
		}
		return a.Exec(cmd.Context(), strings.Join(args, " "), cmd.OutOrStdout())
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the effective console profile as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cfg.LoadProfile()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info("precommander"))
	},
}

func attach(ctx context.Context) (*app.App, error) {
	a, err := app.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := a.Attach(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func init() {
	rootCmd.AddCommand(runCmd, execCmd, profileCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
