// Package cli implements the lifebank cobra commands.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ctxutil"
)

// AddGlobalFlags registers flags every subcommand understands.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("as", "", "Principal to act as (overrides actor in config)")
}

// callerContext carries the --as principal, when given, to the services.
func callerContext(cmd *cobra.Command) context.Context {
	ctx := context.Background()
	if as, _ := cmd.Flags().GetString("as"); as != "" {
		ctx = ctxutil.WithCaller(ctx, as)
	}
	return ctx
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", corerequest.DefaultPageLimit, "Maximum results to return")
	cmd.Flags().Int("offset", 0, "Results to skip")
}

func pageFromFlags(cmd *cobra.Command) corerequest.Page {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	return corerequest.Page{Limit: limit, Offset: offset}
}

func statusFromFlags(cmd *cobra.Command) (*corerequest.Status, error) {
	raw, _ := cmd.Flags().GetString("status")
	if raw == "" {
		return nil, nil
	}
	status, err := corerequest.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid request id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid unit id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// parseTime accepts Unix seconds, RFC 3339, or +duration relative to now.
func parseTime(s string, now time.Time) (int64, error) {
	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return 0, fmt.Errorf("invalid relative time %q: %w", s, err)
		}
		return now.Add(d).Unix(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want unix seconds, RFC 3339 or +duration)", s)
	}
	return t.Unix(), nil
}

func parseIndex(s string) (corerequest.Index, error) {
	switch strings.ToLower(s) {
	case "hospital":
		return corerequest.IndexHospital, nil
	case "bloodtype", "blood-type":
		return corerequest.IndexBloodType, nil
	case "status":
		return corerequest.IndexStatus, nil
	case "urgency":
		return corerequest.IndexUrgency, nil
	}
	return "", fmt.Errorf("unknown index %q (want hospital, bloodtype, status or urgency)", s)
}

// indexKey canonicalises enum-valued bucket keys so "o+" finds "O+".
func indexKey(index corerequest.Index, key string) (string, error) {
	switch index {
	case corerequest.IndexBloodType:
		bt, err := corerequest.ParseBloodType(key)
		return string(bt), err
	case corerequest.IndexStatus:
		s, err := corerequest.ParseStatus(key)
		return string(s), err
	case corerequest.IndexUrgency:
		u, err := corerequest.ParseUrgency(key)
		return string(u), err
	}
	return key, nil
}
