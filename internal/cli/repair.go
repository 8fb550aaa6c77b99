package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/spf13/cobra"
)

func newRepairCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Rebuild every user's boards and collaborations from the boards collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.setupDatabaseCommand()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			dbCfg := cfg.Database
			dbCfg.EnsureIndexes = false
			s, err := store.Open(ctx, dbCfg)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close(context.Background()) }()

			return repairUserIndexes(ctx, s, opts)
		},
	}
}

func repairUserIndexes(ctx context.Context, s store.BoardStore, opts *options) error {
	rewritten, err := s.RebuildUserIndexes(ctx)
	if err != nil {
		return fmt.Errorf("rebuilding user indexes: %w", err)
	}
	logger.Info("repair_user_indexes", map[string]interface{}{"users_rewritten": rewritten})

	if opts.json {
		printJSON(opts.out, map[string]int{"usersRewritten": rewritten})
		return nil
	}
	fmt.Fprintf(opts.out, "Rebuilt board lists for %d user(s)\n", rewritten)
	return nil
}
