package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/primary"
	"github.com/example/lifebank/internal/wire"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Create and move blood requests through their lifecycle",
}

var requestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a Pending blood request",
	Long: `Create a Pending blood request on behalf of a hospital.

--required-by takes Unix seconds, an RFC 3339 time, or +duration from now.

Examples:
  lifebank request create --as HOSP-1 --hospital HOSP-1 --blood-type O+ \
    --quantity 450 --urgency critical --required-by +1h --address "Main Bldg"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hospital, _ := cmd.Flags().GetString("hospital")
		rawType, _ := cmd.Flags().GetString("blood-type")
		quantity, _ := cmd.Flags().GetUint32("quantity")
		rawUrgency, _ := cmd.Flags().GetString("urgency")
		rawRequiredBy, _ := cmd.Flags().GetString("required-by")
		address, _ := cmd.Flags().GetString("address")
		patient, _ := cmd.Flags().GetString("patient")
		procedure, _ := cmd.Flags().GetString("procedure")
		notes, _ := cmd.Flags().GetString("notes")

		bloodType, err := corerequest.ParseBloodType(rawType)
		if err != nil {
			return err
		}
		urgency, err := corerequest.ParseUrgency(rawUrgency)
		if err != nil {
			return err
		}
		requiredBy, err := parseTime(rawRequiredBy, time.Now())
		if err != nil {
			return err
		}

		_, err = wire.RequestAdapter().Create(callerContext(cmd), primary.CreateRequestRequest{
			HospitalID:      hospital,
			BloodType:       bloodType,
			QuantityML:      quantity,
			Urgency:         urgency,
			RequiredBy:      requiredBy,
			DeliveryAddress: address,
			Metadata: corerequest.Metadata{
				PatientID: patient,
				Procedure: procedure,
				Notes:     notes,
			},
		})
		return err
	},
}

var requestShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, err = wire.RequestAdapter().Show(callerContext(cmd), id)
		return err
	},
}

var requestStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move a request to a new status (admin only)",
	Long: `Move a request along the lifecycle:

  Pending   -> Approved | Rejected | Cancelled
  Approved  -> Fulfilled | Cancelled
  Fulfilled -> Completed

Completed, Rejected and Cancelled are final.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, err := corerequest.ParseStatus(args[1])
		if err != nil {
			return err
		}
		return wire.RequestAdapter().SetStatus(callerContext(cmd), id, status)
	},
}

var requestApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a Pending request that is not overdue (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return wire.RequestAdapter().Approve(callerContext(cmd), id)
	},
}

var requestCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a request (owning hospital or admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return wire.RequestAdapter().Cancel(callerContext(cmd), id)
	},
}

var requestAssignCmd = &cobra.Command{
	Use:   "assign <id> <unit>...",
	Short: "Assign blood units to an Approved or Fulfilled request",
	Long: `Append blood unit ids to a request. Units may be separated by spaces or commas.
Only an authorized blood bank or the admin may assign units.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		units, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		if len(units) == 0 {
			return fmt.Errorf("no unit ids given")
		}
		return wire.RequestAdapter().Assign(callerContext(cmd), id, units)
	},
}

func init() {
	requestCreateCmd.Flags().String("hospital", "", "Requesting hospital (required)")
	requestCreateCmd.Flags().String("blood-type", "", "Blood type, e.g. O+ or AB- (required)")
	requestCreateCmd.Flags().Uint32("quantity", 0, "Quantity in mL, 50 to 5000 (required)")
	requestCreateCmd.Flags().String("urgency", "", "Critical, Urgent or Normal (required)")
	requestCreateCmd.Flags().String("required-by", "", "Deadline (required)")
	requestCreateCmd.Flags().String("address", "", "Delivery address (required)")
	requestCreateCmd.Flags().String("patient", "", "Patient identifier")
	requestCreateCmd.Flags().String("procedure", "", "Procedure the blood is for")
	requestCreateCmd.Flags().String("notes", "", "Free-form notes")
	for _, name := range []string{"hospital", "blood-type", "quantity", "urgency", "required-by", "address"} {
		requestCreateCmd.MarkFlagRequired(name)
	}

	requestCmd.AddCommand(requestCreateCmd)
	requestCmd.AddCommand(requestShowCmd)
	requestCmd.AddCommand(requestStatusCmd)
	requestCmd.AddCommand(requestApproveCmd)
	requestCmd.AddCommand(requestCancelCmd)
	requestCmd.AddCommand(requestAssignCmd)
}

// RequestCmd returns the request command
func RequestCmd() *cobra.Command {
	return requestCmd
}
