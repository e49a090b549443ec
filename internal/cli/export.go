package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/lifebank/internal/wire"
)

// ExportCmd returns the export command
func ExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of all requests and indexes (admin only)",
		Long: `Write every request, the id counter and every index bucket as one JSON
document to the sink configured under export: in .lifebank/config.yaml
(a local directory or an S3 bucket).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ExportAdapter().Export(callerContext(cmd))
		},
	}
}
