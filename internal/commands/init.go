package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"evalgo.org/qosd/internal/qos"
	"evalgo.org/qosd/internal/store"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Bootstrap the default QoS configuration",
		Long: `Create the trust mode, the CoS and DSCP maps and the default and
factory-default scheduling and queue mapping profiles in one transaction.

By default a failing step rolls the whole bootstrap back. With
--allow-partial the steps that succeeded are committed and the command
still exits non-zero.`,
		RunE: runInit,
	}
	cmd.Flags().Bool("allow-partial", false, "commit the successful steps when a step fails")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	allowPartial, _ := cmd.Flags().GetBool("allow-partial")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := bootstrap(st, allowPartial); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ QoS configuration bootstrapped in %s\n", st.Path())
	return nil
}

// bootstrap runs every bootstrap step inside one write transaction.
func bootstrap(st *store.Store, allowPartial bool) error {
	txn, err := st.Begin(true)
	if err != nil {
		return err
	}

	sys, err := txn.EnsureSystem()
	if err != nil {
		_ = txn.Rollback()
		return err
	}

	b := qos.NewBootstrapper(qos.NewProfileStore(logger), logger)
	runErr := b.Run(txn, sys)
	if runErr == nil {
		return txn.Commit()
	}

	if !allowPartial {
		_ = txn.Rollback()
		return fmt.Errorf("bootstrap failed, no changes were made: %w", runErr)
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("bootstrap failed: %w", runErr)
	}
	return fmt.Errorf("bootstrap incomplete, successful steps were committed: %w", runErr)
}
