package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/lifebank/internal/cli"
	"github.com/example/lifebank/internal/version"
	"github.com/example/lifebank/internal/wire"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "lifebank",
		Short:   "Lifebank - hospital blood request ledger",
		Version: version.String(),
		Long: `Lifebank tracks hospital blood requests from creation through approval,
unit assignment and delivery, with indexed queries by hospital, blood type,
status and urgency.`,
		SilenceUsage: true,
	}
	cli.AddGlobalFlags(rootCmd)

	// Setup and administration
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.HospitalCmd())
	rootCmd.AddCommand(cli.BloodBankCmd())

	// Request lifecycle
	rootCmd.AddCommand(cli.RequestCmd())
	rootCmd.AddCommand(cli.QueryCmd())

	// Maintenance
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.ExportCmd())

	err := rootCmd.Execute()
	if closeErr := wire.Close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, closeErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
