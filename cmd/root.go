package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ttt/internal/config"
	"ttt/internal/log"
)

// Build information, injected from main via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// flagKeys maps command-line flags onto configuration keys. Only flags the
// user actually set override the layered configuration.
var flagKeys = map[string]string{
	"manifest": "manifest",
	"format":   "format",
	"output":   "output",
	"verbose":  "verbose",
	"debug":    "debug",
	"quiet":    "quiet",
	"no-color": "no_color",
	"strict":   "strict",
}

// NewRootCommand builds the ttt command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ttt",
		Short: "Togai Tsv Tool",
		Long: `ttt is the Togai Tsv Tool. This command manages its package descriptor
(ttt.yaml or ttt.json): the name, version, description, author, license and
the scripts installed onto the system path, with the long description read
from the README next to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("manifest", "m", "", "Package descriptor (default: search ttt.yaml, ttt.yml, ttt.json upward)")
	flags.StringP("format", "f", "text", "Output format (text, json, yaml)")
	flags.StringP("output", "o", "", "Write the report to a file (default: stdout)")
	flags.BoolP("verbose", "v", false, "Verbose mode")
	flags.Bool("debug", false, "Debug mode")
	flags.BoolP("quiet", "q", false, "Quiet mode")
	flags.Bool("no-color", false, "Disable coloured output")

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	rootCmd.MarkFlagsMutuallyExclusive("debug", "quiet")

	rootCmd.AddCommand(newInfoCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newInfoCommand() *cobra.Command {
	var noLong bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the package descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLogger(cmd, func(cfg *config.Config, logger *log.Logger) error {
				return executeInfo(cfg, logger, !noLong)
			})
		},
	}
	cmd.Flags().BoolVar(&noLong, "no-long-description", false, "Omit the README content")
	return cmd
}

func newCheckCommand() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the descriptor, its README and its scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLogger(cmd, func(cfg *config.Config, logger *log.Logger) error {
				return executeCheck(cfg, logger, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.expectVersion, "expect-version", "", "Fail unless the declared version equals this one")
	cmd.Flags().StringVar(&opts.runtime, "runtime", "", "Runtime version to test against the requires constraint")
	cmd.Flags().Bool("strict", false, "Treat warnings as failures")
	return cmd
}

func newDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two descriptor snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLogger(cmd, func(cfg *config.Config, logger *log.Logger) error {
				return executeDiff(logger, args[0], args[1])
			})
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLogger(cmd, func(_ *config.Config, logger *log.Logger) error {
				return executeVersion(logger)
			})
		},
	}
}

// Execute runs the root command and handles top-level error reporting.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		log.WriteError(os.Stderr, errorFormat(rootCmd), err)
		os.Exit(1)
	}
}

// loadConfig resolves the runtime configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := config.DefaultLoadOptions()
	opts.Overrides = changedFlags(cmd)
	return config.Load(opts)
}

func changedFlags(cmd *cobra.Command) map[string]any {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	return overrides
}

func withLogger(cmd *cobra.Command, run func(*config.Config, *log.Logger) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := log.NewLogger(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Debugf("configuration: format=%s manifest=%q output=%q strict=%t", cfg.Format, cfg.Manifest, cfg.Output, cfg.Strict)
	return run(cfg, logger)
}

// errorFormat picks the error encoding once a command has failed. The
// --format flag wins; otherwise the layered configuration decides, so a
// format set in .ttt.json or the global config file also applies to errors.
// When the configuration itself is broken, TTT_FORMAT is the last resort.
func errorFormat(rootCmd *cobra.Command) config.OutputFormat {
	if f := rootCmd.PersistentFlags().Lookup("format"); f != nil && f.Changed {
		return config.OutputFormat(strings.ToLower(f.Value.String()))
	}
	if cfg, err := config.Load(config.DefaultLoadOptions()); err == nil {
		return cfg.Format
	}
	return config.OutputFormat(strings.ToLower(os.Getenv(config.EnvPrefix + "FORMAT")))
}
