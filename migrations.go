package authkit

import (
	"context"
	"io/fs"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RunMigrations applies the embedded schema migrations in filename order.
// Statements are idempotent so startup can run this unconditionally.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	dir, err := fs.Sub(migrationsFS, "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not open migrations")
	}

	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list migrations")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(dir, name)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not read migration "+name)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "migration failed: "+name)
		}
	}

	return nil
}
