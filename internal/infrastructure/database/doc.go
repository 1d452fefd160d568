// Package database provides the SQLite store behind the driver's
// persistent state: setup values entered in the setup wizard and the last
// known attributes of each entity.
//
// The connection is opened with WAL mode and a busy timeout, limited to a
// single writer, and the file is restricted to 0600. Schema changes are
// applied by Migrate from an fs.FS of versioned migration files:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Migrations are additive: new columns must be
// nullable or carry a default.
package database
