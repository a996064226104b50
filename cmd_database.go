package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"volt-data/catalog"
	"volt-data/db"
	"volt-data/migrate"
	"volt-data/models"
	"volt-data/store"
)

func schemaCmd(g *globalFlags) *cobra.Command {
	var drop, yes bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the Volt tables, indexes and triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			out := cmd.OutOrStdout()

			conn, err := db.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintf(out, "Connected to %s\n", cfg.Postgres.Target())

			if drop {
				if !yes && !confirm(cmd.InOrStdin(), out, "Drop all Volt tables? (tak/nie): ", destructiveAnswers...) {
					fmt.Fprintln(out, "Drop cancelled")
					return nil
				}
				err := db.DropSchema(cmd.Context(), conn, func(table string) {
					fmt.Fprintf(out, "  dropped %s\n", table)
				})
				if err != nil {
					return err
				}
			}

			err = db.CreateSchema(cmd.Context(), conn, func(step db.Step) {
				fmt.Fprintf(out, "  created %s\n", step.Name)
			})
			if err != nil {
				logger.Error("schema rolled back", zap.Error(err))
				return err
			}
			fmt.Fprintln(out, "Schema ready")
			return nil
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "Drop existing tables first")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the drop confirmation")
	return cmd
}

func migrateCmd(g *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Load catalog and reference data into PostgreSQL",
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "Catalog YAML file (default: embedded catalog)")

	var dry bool
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Upsert components, categories, subcategories and links",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := catalog.Load(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if dry {
				s := migrate.Summarize(f)
				fmt.Fprintln(out, "Dry run, nothing written:")
				fmt.Fprintf(out, "  components:     %d\n", s.Components)
				fmt.Fprintf(out, "  categories:     %d\n", s.Categories)
				fmt.Fprintf(out, "  subcategories:  %d\n", s.Subcategories)
				fmt.Fprintf(out, "  links:          %d\n", s.Links)
				fmt.Fprintf(out, "  auto-classified: %d\n", s.Classified)
				return f.Validate()
			}

			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			conn, err := db.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintf(out, "Connected to %s\n", cfg.Postgres.Target())

			res, err := migrate.New(conn, logger).Catalog(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Upserted %d components, %d categories, %d subcategories\n",
				res.Components, res.Categories, res.Subcategories)
			fmt.Fprintf(out, "Added %d links (%d components auto-classified)\n", res.NewLinks, res.Classified)
			return nil
		},
	}
	catalogCmd.Flags().BoolVar(&dry, "dry", false, "Print a summary without connecting to the database")

	referenceCmd := &cobra.Command{
		Use:   "reference",
		Short: "Replace fuse types and circuit templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := catalog.Load(file)
			if err != nil {
				return err
			}
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			out := cmd.OutOrStdout()

			conn, err := db.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintf(out, "Connected to %s\n", cfg.Postgres.Target())

			res, err := migrate.New(conn, logger).Reference(cmd.Context(), f)
			if err != nil {
				return err
			}
			for _, phase := range []string{models.PhaseSingle, models.PhaseThree} {
				fmt.Fprintf(out, "  fuse types %s: %d\n", phase, res.FuseTypes[phase])
			}
			fmt.Fprintf(out, "  circuit templates: %d\n", res.CircuitTemplates)
			return nil
		},
	}

	cmd.AddCommand(catalogCmd, referenceCmd)
	return cmd
}

var demoUsers = []models.TestUser{
	{Email: "john.doe@example.com", Name: "John Doe"},
	{Email: "jane.smith@example.com", Name: "Jane Smith"},
	{Email: "bob.wilson@example.com", Name: "Bob Wilson"},
}

func crudCmd(g *globalFlags) *cobra.Command {
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "crud",
		Short: "Run create, read, update and delete against volt_test_users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			conn, err := db.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintf(out, "Connected to %s\n", cfg.Postgres.Target())

			if err := db.CreateUserTable(ctx, conn); err != nil {
				return err
			}
			users := store.NewUserStore(conn)

			fmt.Fprintln(out, "\nINSERT")
			ids := make([]int64, 0, len(demoUsers))
			for _, u := range demoUsers {
				u := u
				id, err := users.CreateUser(ctx, &u)
				if err != nil {
					return err
				}
				ids = append(ids, id)
				fmt.Fprintf(out, "  ID=%d Email=%s Name=%s\n", id, u.Email, u.Name)
			}

			fmt.Fprintln(out, "\nSELECT")
			all, err := users.ListUsers(ctx)
			if err != nil {
				return err
			}
			for _, u := range all {
				fmt.Fprintf(out, "  ID=%d Email=%s Name=%s Created=%s\n", u.ID, u.Email, u.Name, u.CreatedAt)
			}
			fmt.Fprintf(out, "  total: %d\n", len(all))

			fmt.Fprintln(out, "\nUPDATE")
			before, err := users.GetUserByID(ctx, ids[0])
			if err != nil {
				return err
			}
			if err := users.UpdateUserName(ctx, ids[0], before.Name+" (updated)"); err != nil {
				return err
			}
			after, err := users.GetUserByID(ctx, ids[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  ID=%d Name: %q -> %q (updated at %s)\n", after.ID, before.Name, after.Name, after.UpdatedAt)

			fmt.Fprintln(out, "\nDELETE")
			last := ids[len(ids)-1]
			if err := users.DeleteUser(ctx, last); err != nil {
				return err
			}
			remaining, err := users.ListUsers(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  deleted ID=%d, %d rows left\n", last, len(remaining))

			if cleanup && confirm(cmd.InOrStdin(), out, "\nRemove the remaining test users? (tak/nie): ", destructiveAnswers...) {
				for _, u := range remaining {
					if err := users.DeleteUser(ctx, u.ID); err != nil {
						return err
					}
				}
				fmt.Fprintln(out, "Test users removed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Offer to remove the test users at the end")
	return cmd
}
