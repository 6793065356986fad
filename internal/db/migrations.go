package db

import (
	"fmt"
	"strings"

	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	UpDownSeparator     = "-- +migrate Up"
	downMarker          = "-- +migrate Down"
	migrationDirections = 2

	// primaryKeyReplacer in migration SQL expands to the backend's
	// auto-increment primary key column definition.
	primaryKeyReplacer = "/*pk*/"
	sqlitePrimaryKey   = "INTEGER PRIMARY KEY AUTOINCREMENT"
	postgresPrimaryKey = "BIGSERIAL PRIMARY KEY"
)

type Migration struct {
	ID  string
	SQL string
}

// RunMigrationsDB applies all pending up migrations.
func RunMigrationsDB(log *logger.Logger, d *DB, migrations []Migration) error {
	return RunMigrationsDBExtended(log, d, migrations, migrate.Up, 0)
}

// RunMigrationsDBExtended applies migrations in dir, at most maxMigrations (0 for no limit).
func RunMigrationsDBExtended(
	log *logger.Logger,
	d *DB,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	source, err := memorySource(d, migrations)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(source.Migrations))
	for _, m := range source.Migrations {
		ids = append(ids, m.Id)
	}
	list := strings.Join(ids, ", ")

	log.Debugf("running migrations (max %d/%d): %s", maxMigrations, len(ids), list)

	n, err := migrate.ExecMax(d.DB, d.migrationDialect(), source, dir, maxMigrations)
	if err != nil {
		return Wrap("migrate", fmt.Errorf("migrations %s: %w", list, err))
	}

	log.Infof("successfully ran %d migrations from migrations: %s", n, list)
	return nil
}

func memorySource(d *DB, migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	pk := sqlitePrimaryKey
	if !d.IsSQLite() {
		pk = postgresPrimaryKey
	}

	source := &migrate.MemoryMigrationSource{}
	for _, m := range migrations {
		body := strings.ReplaceAll(m.SQL, primaryKeyReplacer, pk)
		parts := strings.Split(body, UpDownSeparator)
		if len(parts) < migrationDirections {
			return nil, fmt.Errorf("migration %s missing '%s' separator", m.ID, UpDownSeparator)
		}

		down := parts[0]
		if idx := strings.Index(down, downMarker); idx != -1 {
			down = down[idx+len(downMarker):]
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(parts[1])},
			Down: []string{strings.TrimSpace(down)},
		})
	}

	return source, nil
}
