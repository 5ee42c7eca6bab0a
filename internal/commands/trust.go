package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"evalgo.org/qosd/internal/qos"
	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/internal/store"
)

func newTrustCmd() *cobra.Command {
	trustCmd := &cobra.Command{
		Use:   "trust",
		Short: "Switch trust mode",
	}

	setCmd := &cobra.Command{
		Use:       "set <mode>",
		Short:     "Set the trust mode (" + strings.Join(defaults.TrustModes(), ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: defaults.TrustModes(),
		RunE:      runTrustSet,
	}

	trustCmd.AddCommand(setCmd)
	return trustCmd
}

func runTrustSet(cmd *cobra.Command, args []string) error {
	mode := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	b := qos.NewBootstrapper(qos.NewProfileStore(logger), logger)
	err = st.Update(func(txn *store.Txn) error {
		sys, err := txn.System()
		if err != nil {
			return fmt.Errorf("no system record, run qosd init first: %w", err)
		}
		return b.SetTrust(txn, sys, mode)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Trust mode set to %s\n", mode)
	return nil
}
