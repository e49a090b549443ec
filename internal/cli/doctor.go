package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/lifebank/internal/wire"
)

// DoctorCmd returns the doctor command for index validation
func DoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Audit the secondary indexes against the stored requests",
		Long: `Rebuild every index from a full scan of the stored requests and compare
the result with what the store holds. Also checks that the id counter is not
behind the highest stored id and that every stored request still validates.

Exit code is 1 when any inconsistency is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := wire.RequestAdapter().VerifyIndexes(callerContext(cmd))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("index validation failed")
			}
			return nil
		},
	}
}
