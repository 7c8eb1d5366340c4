package main

import (
	"fmt"
	"log"
	"os"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/mcoot/dotareg/internal/config"
	pgstorage "github.com/mcoot/dotareg/internal/storage/postgres"
	"github.com/mcoot/dotareg/internal/storage/postgres/migrations"
)

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "manage the postgres schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the configuration file",
				EnvVars: []string{"DOTAREG_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "create migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error { return m.Init(c.Context) }),
			},
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Init(c.Context); err != nil {
						return err
					}
					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No new migrations to run")
					} else {
						fmt.Printf("Migrated to %s\n", group)
					}
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No groups to roll back")
					} else {
						fmt.Printf("Rolled back %s\n", group)
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Migrations: %s\n", ms)
					fmt.Printf("Applied: %s\n", ms.Applied())
					fmt.Printf("Unapplied: %s\n", ms.Unapplied())
					return nil
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withMigrator connects using storage.postgres.dsn (or DATABASE_URL) and
// hands the action a migrator over the registration schema
func withMigrator(action func(*cli.Context, *migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("config"))
		if err != nil {
			return err
		}

		pgCfg := pgstorage.DefaultConfig()
		if cfg.Storage.Postgres.DSN != "" {
			pgCfg.DSN = cfg.Storage.Postgres.DSN
		}

		db, err := pgstorage.Open(c.Context, pgCfg)
		if err != nil {
			return err
		}
		defer func(db *bun.DB) { _ = db.Close() }(db)

		return action(c, migrate.NewMigrator(db, migrations.Migrations))
	}
}

// loadConfig falls back to the defaults plus DATABASE_URL when the server
// config does not load
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	def := config.Default()
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		def.Storage.Postgres.DSN = dsn
		return &def, nil
	}
	return nil, err
}
