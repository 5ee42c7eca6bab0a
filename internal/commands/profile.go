package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"evalgo.org/qosd/internal/qos"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Scheduling and queue mapping profiles",
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a profile to its factory defaults",
		Long: `Replace the entries of a profile with fresh copies of the
factory-default profile of the same kind. Factory-default profiles
themselves cannot be restored.`,
		Args: cobra.ExactArgs(1),
		RunE: runProfileRestore,
	}
	restoreCmd.Flags().String("kind", "schedule", "profile kind (schedule, queue)")

	profileCmd.AddCommand(restoreCmd)
	return profileCmd
}

func profileKind(kind string) (models.Kind, error) {
	switch kind {
	case "schedule":
		return models.KindScheduleProfile, nil
	case "queue":
		return models.KindQueueProfile, nil
	}
	return "", fmt.Errorf("unknown profile kind %q (use schedule or queue)", kind)
}

func runProfileRestore(cmd *cobra.Command, args []string) error {
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, err := profileKind(kindFlag)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	profiles := qos.NewProfileStore(logger)
	err = st.Update(func(txn *store.Txn) error {
		return profiles.RestoreProfile(txn, kind, args[0])
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Restored %s profile %q\n", kindFlag, args[0])
	return nil
}
