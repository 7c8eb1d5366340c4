// Package migrations holds the bun schema migrations for the postgres store.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the ordered set of schema changes, named by file
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
