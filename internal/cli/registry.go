package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/lifebank/internal/wire"
)

// HospitalCmd returns the hospital registry command
func HospitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hospital",
		Short: "Manage which hospitals may create requests",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "authorize <hospital>",
		Short: "Allow a hospital to create requests (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequestAdapter().AuthorizeHospital(callerContext(cmd), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <hospital>",
		Short: "Withdraw a hospital's authorization (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequestAdapter().RevokeHospital(callerContext(cmd), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check <hospital>",
		Short: "Show whether a hospital may create requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequestAdapter().CheckHospital(callerContext(cmd), args[0])
		},
	})

	return cmd
}

// BloodBankCmd returns the blood bank registry command
func BloodBankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bloodbank",
		Aliases: []string{"bank"},
		Short:   "Manage which blood banks may assign units",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "authorize <bank>",
		Short: "Allow a blood bank to assign units (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequestAdapter().AuthorizeBloodBank(callerContext(cmd), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <bank>",
		Short: "Withdraw a blood bank's authorization (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequestAdapter().RevokeBloodBank(callerContext(cmd), args[0])
		},
	})

	return cmd
}
