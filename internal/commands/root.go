package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/logging"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/internal/version"
)

var (
	cfgFile   string
	storePath string
	logLevel  string
	logFormat string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
)

// NewRootCmd builds the qosd command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qosd",
		Short: "Switch QoS bootstrap engine",
		Long: `qosd keeps the Quality-of-Service configuration of a network switch.

It creates the default queue scheduling and queue mapping profiles, the
CoS and DSCP classification maps and the trust mode in the switch
configuration store, checks the store for integrity issues and serves a
read-only status API.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "configuration store file (overrides store.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newTrustCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newIntegrityCmd())
	rootCmd.AddCommand(newServeCmd())

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)

	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger, closeLog, err = logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	return nil
}

// openStore opens the configuration store named by the loaded config.
func openStore() (*store.Store, error) {
	st, err := store.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			info := version.Get()
			fmt.Fprintln(out, info.String())

			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Fprintf(out, "\nDetails:\n")
				fmt.Fprintf(out, "  Version:    %s\n", info.Version)
				fmt.Fprintf(out, "  Git Commit: %s\n", info.GitCommit)
				fmt.Fprintf(out, "  Built:      %s\n", info.BuildTime)
				fmt.Fprintf(out, "  Go Version: %s\n", info.GoVersion)
				fmt.Fprintf(out, "  Platform:   %s\n", info.Platform)
			}
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "verbose version output")
	return cmd
}
