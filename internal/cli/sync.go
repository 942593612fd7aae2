package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"puzzlepals/internal/models"
	"puzzlepals/internal/syncer"
)

func newPushCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "push <identity>",
		Short: "Push an identity's local data to the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := models.IdentityID(args[0])
			orchestrator, err := rt.startSyncer(cmd)
			if err != nil {
				return err
			}

			snap, err := orchestrator.PushIdentity(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to push %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s (%d profiles)\n", id, len(snap.Profiles))
			return nil
		},
	}
}

func newPullCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <identity>",
		Short: "Restore an identity's data from the remote store",
		Long: `Pull applies the remote snapshot to the local database. Settings edited on
this device are kept. When no snapshot exists the local data is pushed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := models.IdentityID(args[0])
			orchestrator, err := rt.startSyncer(cmd)
			if err != nil {
				return err
			}

			identity, err := rt.app.Store.Identities.Get(id)
			if err != nil {
				return err
			}
			if identity == nil {
				return fmt.Errorf("identity %s not found in local database", id)
			}

			restored, err := orchestrator.RestoreFromRemote(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to pull %s: %w", id, err)
			}
			if restored {
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from remote snapshot\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No remote snapshot for %s, pushed local data\n", id)
			}
			return nil
		},
	}
}

func (rt *runtime) startSyncer(cmd *cobra.Command) (*syncer.Orchestrator, error) {
	orchestrator := rt.app.Syncer
	orchestrator.Start(cmd.Context())
	if !orchestrator.Online() {
		return nil, syncer.ErrOffline
	}
	return orchestrator, nil
}
