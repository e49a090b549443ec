package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/lifebank/internal/config"
	"github.com/example/lifebank/internal/ctxutil"
	"github.com/example/lifebank/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var driver, path, dsn string

	cmd := &cobra.Command{
		Use:   "init <admin>",
		Short: "Initialize the request ledger",
		Long: `Write .lifebank/config.yaml in the current directory (unless one exists)
and record <admin> as the administering principal.

Examples:
  lifebank init ADMIN
  lifebank init ADMIN --driver leveldb --path ./data
  lifebank init ADMIN --driver postgres --dsn postgres://localhost/lifebank`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin := args[0]
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			_, err = config.LoadConfig(cwd)
			switch {
			case errors.Is(err, os.ErrNotExist):
				cfg := config.Default()
				cfg.Actor = admin
				cfg.Store = config.StoreConfig{Driver: driver, Path: path, DSN: dsn}
				if err := cfg.Validate(); err != nil {
					return err
				}
				if err := config.SaveConfig(cwd, cfg); err != nil {
					return err
				}
				fmt.Printf("✓ Config written to %s\n", config.Path(cwd))
			case err != nil:
				return err
			default:
				fmt.Printf("Using existing config at %s\n", config.Path(cwd))
			}

			// The admin submits their own initialization.
			ctx := ctxutil.WithCaller(callerContext(cmd), admin)
			if err := wire.RequestAdapter().Initialize(ctx, admin); err != nil {
				return err
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  lifebank hospital authorize HOSP-1")
			fmt.Println("  lifebank request create --as HOSP-1 --hospital HOSP-1 --blood-type O+ --quantity 450 --urgency critical --required-by +2h --address \"Main Bldg\"")
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", config.DriverSQLite, "Store driver (sqlite, postgres, leveldb, memory)")
	cmd.Flags().StringVar(&path, "path", "", "SQLite file or LevelDB directory (default under ~/.lifebank)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres connection string")

	return cmd
}
