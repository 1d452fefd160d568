package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20261001_120000_create_values.up.sql": {Data: []byte(
			"CREATE TABLE test_values (key TEXT PRIMARY KEY, value TEXT NOT NULL);")},
		"20261001_120000_create_values.down.sql": {Data: []byte(
			"DROP TABLE test_values;")},
		"20261002_080000_add_snapshots.up.sql": {Data: []byte(
			"CREATE TABLE test_snapshots (id TEXT PRIMARY KEY);")},
		"README.md": {Data: []byte("not a migration")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fsys := testMigrations()
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, name := range []string{"test_values", "test_snapshots"} {
		if !tableExists(t, db, name) {
			t.Errorf("table %s not created", name)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}
	if applied[0].Version != "20261001_120000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("unexpected first record %+v", applied[0])
	}

	// Running again is idempotent.
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlierMigrations(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20261003_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE (")}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() with broken migration should fail")
	}
	if !tableExists(t, db, "test_snapshots") {
		t.Error("migrations before the failure should stay applied")
	}

	_, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "broken" {
		t.Errorf("pending = %+v, want only broken", pending)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	fsys := fstest.MapFS{}
	for name, f := range testMigrations() {
		if name != "20261002_080000_add_snapshots.up.sql" {
			fsys[name] = f
		}
	}

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_values") {
		t.Error("table test_values should have been dropped")
	}

	applied, _, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied migrations after rollback, got %d", len(applied))
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Errorf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestMigrateDown_WithoutDownSQL(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	fsys := testMigrations()
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, fsys); err == nil {
		t.Error("MigrateDown() without down SQL should fail")
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     migrationFile
		wantOk   bool
	}{
		{"20261001_120000_setup_values.up.sql", migrationFile{"20261001_120000", "setup_values", true}, true},
		{"20261002_090000_entity_snapshots.down.sql", migrationFile{"20261002_090000", "entity_snapshots", false}, true},
		{"readme.txt", migrationFile{}, false},
		{"20261001_120000_setup_values.sql", migrationFile{}, false},
		{"20261001_120000.up.sql", migrationFile{}, false},
		{"invalid.up.sql", migrationFile{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("parseMigrationFilename() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadMigrations_IgnoresLoneDown(t *testing.T) {
	fsys := testMigrations()
	fsys["20261005_000000_orphan.down.sql"] = &fstest.MapFile{Data: []byte("DROP TABLE x;")}

	migrations, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("loaded %d migrations, want 2", len(migrations))
	}
	if migrations[0].Name != "create_values" || migrations[0].DownSQL == "" {
		t.Errorf("first migration = %+v", migrations[0])
	}
	if migrations[1].Version != "20261002_080000" {
		t.Errorf("second version = %q", migrations[1].Version)
	}
}
