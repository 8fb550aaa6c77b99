package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/canvasboard/backend/internal/database"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/spf13/cobra"
)

type initDBResult struct {
	Database           string   `json:"database"`
	AppUser            string   `json:"appUser,omitempty"`
	AppUserCreated     bool     `json:"appUserCreated"`
	CollectionsCreated []string `json:"collectionsCreated"`
	Indexes            int      `json:"indexes"`
}

func newInitDBCommand(opts *options) *cobra.Command {
	var skipUser bool

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the application user, collections and indexes (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.setupDatabaseCommand()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "mongo" {
				return fmt.Errorf("init-db requires the mongo driver, configured driver is %q", cfg.Database.Driver)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			client, err := database.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()
			db := client.Database(cfg.Database.Name)

			result := initDBResult{Database: cfg.Database.Name, CollectionsCreated: []string{}}

			if !skipUser {
				if cfg.Database.AppPassword == "" {
					return fmt.Errorf("database.app_password is required to create %q (or pass --skip-user)", cfg.Database.AppUser)
				}
				created, err := database.EnsureAppUser(ctx, db, cfg.Database.AppUser, cfg.Database.AppPassword)
				if err != nil {
					return err
				}
				result.AppUser = cfg.Database.AppUser
				result.AppUserCreated = created
				logger.Info("init_db_app_user", map[string]interface{}{
					"user":    cfg.Database.AppUser,
					"created": created,
				})
			}

			collections, err := database.EnsureCollections(ctx, db)
			if err != nil {
				return err
			}
			if collections != nil {
				result.CollectionsCreated = collections
			}

			result.Indexes, err = database.EnsureIndexes(ctx, db)
			if err != nil {
				return err
			}
			logger.Info("init_db_complete", map[string]interface{}{
				"database":    cfg.Database.Name,
				"collections": len(result.CollectionsCreated),
				"indexes":     result.Indexes,
			})

			if opts.json {
				printJSON(opts.out, result)
				return nil
			}
			fmt.Fprintf(opts.out, "Database %s initialized\n", result.Database)
			if result.AppUser != "" {
				state := "already present"
				if result.AppUserCreated {
					state = "created"
				}
				fmt.Fprintf(opts.out, "  app user %s: %s\n", result.AppUser, state)
			}
			fmt.Fprintf(opts.out, "  collections created: %d\n", len(result.CollectionsCreated))
			fmt.Fprintf(opts.out, "  indexes ensured: %d\n", result.Indexes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipUser, "skip-user", false, "Do not create the application database user")
	return cmd
}
