package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	showConfigCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runShowConfig,
	}

	initConfigCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		RunE:  runInitConfig,
	}
	initConfigCmd.Flags().String("path", "config.yaml", "file to write")
	initConfigCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(initConfigCmd)
	return configCmd
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

const defaultConfig = `# qosd Configuration

store:
  path: /var/lib/qosd/qosd.db
  timeout: 1s
  bootstrap_on_start: true

server:
  host: 127.0.0.1
  port: 8096
  read_timeout: 30s
  write_timeout: 30s
  shutdown_timeout: 10s
  debug: false

logging:
  level: info
  format: json
  output: stdout

security:
  rate_limit: 50
  allowed_origins: []

integrity:
  audit_enabled: true
  audit_path: /var/log/qosd/integrity/
  max_failures: 10
`

func runInitConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
	return nil
}
