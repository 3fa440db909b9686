// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_plans.sql") and are read from an fs.FS, usually an embedded
// directory. Applied versions are tracked in the schema_migrations table and
// every migration runs inside its own transaction together with its version
// record, so a failed migration leaves no trace.
//
// Example usage:
//
//	manager := migration.NewManager(db, schemaFS, "schema", logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
