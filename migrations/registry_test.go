package migrations

import (
	"context"
	"io/fs"
	"testing"
)

func TestFilesystems_EveryDialectCarriesMigrations(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("resolve filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected postgres and sqlite filesystems, got %d", len(filesystems))
	}

	seen := map[string]bool{}
	for _, spec := range filesystems {
		seen[spec.Dialect] = true
		matches, err := fs.Glob(spec.FS, "*.up.sql")
		if err != nil {
			t.Fatalf("glob %s: %v", spec.Dialect, err)
		}
		if len(matches) == 0 {
			t.Fatalf("expected up migrations for %s", spec.Dialect)
		}
	}
	if !seen[DialectPostgres] || !seen[DialectSQLite] {
		t.Fatalf("expected both dialects, got %v", seen)
	}
}

func TestRegister_FiltersByDialect(t *testing.T) {
	var dialects []string
	err := Register(context.Background(), func(_ context.Context, dialect string, fsys fs.FS) error {
		if fsys == nil {
			t.Fatalf("expected filesystem for %s", dialect)
		}
		dialects = append(dialects, dialect)
		return nil
	}, DialectSQLite)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(dialects) != 1 || dialects[0] != DialectSQLite {
		t.Fatalf("expected sqlite only, got %v", dialects)
	}
}

func TestRegister_RejectsUnknownDialect(t *testing.T) {
	err := Register(context.Background(), func(context.Context, string, fs.FS) error {
		return nil
	}, "oracle")
	if err == nil {
		t.Fatalf("expected unmatched dialect to fail")
	}
}

func TestDialectForDriver(t *testing.T) {
	cases := map[string]string{
		"sqlite3":  DialectSQLite,
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
	}
	for driver, want := range cases {
		got, err := DialectForDriver(driver)
		if err != nil {
			t.Fatalf("dialect for %s: %v", driver, err)
		}
		if got != want {
			t.Fatalf("driver %s: expected %s, got %s", driver, want, got)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}
