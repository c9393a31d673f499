// Package migrations exposes the embedded schema as per-dialect filesystems
// and registers them with whatever migration runner the caller uses.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	esimconnect "github.com/maskia-arch/esimconnect"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const migrationsPath = "data/sql/migrations"

// FilesystemSpec is one dialect's migration tree.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// RegisterFunc receives each dialect filesystem; implementations typically
// forward the sqlite or postgres tree to the persistence client.
type RegisterFunc func(ctx context.Context, dialect string, fsys fs.FS) error

// Filesystems resolves the embedded migration tree into per-dialect specs.
// Every returned filesystem is verified to carry at least one up migration.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := esimconnect.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, err := fs.Sub(root, migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: %s not found: %w", migrationsPath, err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: migrationsPath, FS: base},
		{Dialect: DialectSQLite, Path: migrationsPath + "/sqlite", FS: sqliteFS},
	}

	for _, fsys := range filesystems {
		matches, globErr := fs.Glob(fsys.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", fsys.Dialect, fsys.Path, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", fsys.Dialect, fsys.Path)
		}
	}

	return filesystems, nil
}

// Register resolves the embedded filesystems and hands the requested dialects
// to registerFn. With no dialects given, every known dialect is registered.
func Register(ctx context.Context, registerFn RegisterFunc, dialects ...string) error {
	if registerFn == nil {
		return fmt.Errorf("migrations: register function is required")
	}

	wanted := map[string]bool{}
	for _, dialect := range dialects {
		trimmed := strings.TrimSpace(strings.ToLower(dialect))
		if trimmed != "" {
			wanted[trimmed] = true
		}
	}

	filesystems, err := Filesystems()
	if err != nil {
		return err
	}

	registered := 0
	for _, fsys := range filesystems {
		if len(wanted) > 0 && !wanted[fsys.Dialect] {
			continue
		}
		if err := registerFn(ctx, fsys.Dialect, fsys.FS); err != nil {
			return fmt.Errorf("migrations: register %s (%s): %w", fsys.Dialect, fsys.Path, err)
		}
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("migrations: no filesystem matched dialects %v", dialects)
	}
	return nil
}

// DialectForDriver maps a sql driver name onto the migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "postgres", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: no dialect for driver %q", driver)
	}
}
