package main

import (
	"github.com/spf13/cobra"
)

func newReconcileStatsCmd(e *env) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "reconcile-stats",
		Short: "Recount total_annotations from the annotation ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := []uint{userID}
			if userID == 0 {
				all, err := e.store.Users.ListIDs(cmd.Context())
				if err != nil {
					return err
				}
				ids = all
			}

			fixed := 0
			for _, id := range ids {
				drifted, err := e.services.Stats.Reconcile(cmd.Context(), id)
				if err != nil {
					return err
				}
				if drifted {
					fixed++
					cmd.Printf("Reconciled stats for user %d\n", id)
				}
			}
			cmd.Printf("Checked %d users, fixed %d\n", len(ids), fixed)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "only reconcile this user id")
	return cmd
}

func newPromoteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "promote [email]",
		Short: "Grant admin to the user with this email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := e.services.Auth.PromoteUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Promoted %s (id %d) to admin\n", user.Username, user.ID)
			return nil
		},
	}
}
