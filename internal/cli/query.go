package cli

import (
	"time"

	"github.com/spf13/cobra"

	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/wire"
)

// QueryCmd returns the query command
func QueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search requests through the secondary indexes",
	}

	hospital := &cobra.Command{
		Use:   "hospital <hospital>",
		Short: "List a hospital's requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := statusFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.RequestAdapter().HospitalRequests(callerContext(cmd), args[0], status, pageFromFlags(cmd))
		},
	}
	hospital.Flags().String("status", "", "Only requests in this status")
	addPageFlags(hospital)

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List Pending requests, most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequestAdapter().Pending(callerContext(cmd), pageFromFlags(cmd))
		},
	}
	addPageFlags(pending)

	dateRange := &cobra.Command{
		Use:   "range",
		Short: "List requests created within a time range (inclusive)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			rawFrom, _ := cmd.Flags().GetString("from")
			rawTo, _ := cmd.Flags().GetString("to")
			from, err := parseTime(rawFrom, now)
			if err != nil {
				return err
			}
			to, err := parseTime(rawTo, now)
			if err != nil {
				return err
			}
			status, err := statusFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.RequestAdapter().DateRange(callerContext(cmd), from, to, status, pageFromFlags(cmd))
		},
	}
	dateRange.Flags().String("from", "0", "Range start")
	dateRange.Flags().String("to", "+0s", "Range end")
	dateRange.Flags().String("status", "", "Only requests in this status")
	addPageFlags(dateRange)

	urgency := &cobra.Command{
		Use:   "urgency <urgency>",
		Short: "List requests of one urgency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := corerequest.ParseUrgency(args[0])
			if err != nil {
				return err
			}
			status, err := statusFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.RequestAdapter().ByUrgency(callerContext(cmd), u, status, pageFromFlags(cmd))
		},
	}
	urgency.Flags().String("status", "", "Only requests in this status")
	addPageFlags(urgency)

	ids := &cobra.Command{
		Use:   "ids <hospital|bloodtype|status|urgency> <key>",
		Short: "Print the raw ids stored in one index bucket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			key, err := indexKey(index, args[1])
			if err != nil {
				return err
			}
			return wire.RequestAdapter().IDs(callerContext(cmd), index, key)
		},
	}

	cmd.AddCommand(hospital, pending, dateRange, urgency, ids)
	return cmd
}
