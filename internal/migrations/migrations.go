package migrations

import (
	"embed"
	"fmt"
	"path"
	"sort"

	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
)

//go:embed sql/*.sql
var files embed.FS

// All returns the schema migrations in apply order.
func All() ([]db.Migration, error) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	migs := make([]db.Migration, 0, len(entries))
	for _, e := range entries {
		body, err := files.ReadFile(path.Join("sql", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		migs = append(migs, db.Migration{ID: e.Name(), SQL: string(body)})
	}

	return migs, nil
}

// RunMigrations brings the schema of d up to date.
func RunMigrations(log *logger.Logger, d *db.DB) error {
	migs, err := All()
	if err != nil {
		return err
	}
	return db.RunMigrationsDB(log, d, migs)
}
