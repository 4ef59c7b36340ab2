package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vitebridge/internal/adapters/storage"
	itemStore "vitebridge/internal/adapters/storage/item"
	salesStore "vitebridge/internal/adapters/storage/sales"
	"vitebridge/internal/application/orchestrators"
	"vitebridge/internal/config"
)

func newInitDBCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the tables and seed sample rows into empty ones, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded, err := runInitDB(cmd.Context(), st.cfg)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "Database initialized with sample data")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Database already contains data")
			}
			return nil
		},
	}
}

func runInitDB(ctx context.Context, cfg config.Config) (bool, error) {
	db, err := storage.Open(cfg.DatabaseURL, 1)
	if err != nil {
		return false, err
	}
	defer db.Close()

	timed := storage.NewTimedDB(db, nil, float64(cfg.SlowQueryMs))
	seeded, err := orchestrators.ExecuteInitDB(ctx, orchestrators.InitDBDeps{
		EnsureSchema: func(ctx context.Context) error { return storage.EnsureSchema(ctx, timed) },
		ItemStore:    itemStore.NewSQLiteStore(timed),
		SalesStore:   salesStore.NewSQLiteStore(timed),
	})
	if err != nil {
		return false, fmt.Errorf("init-db: %w", err)
	}
	return seeded, nil
}
