package main

import (
	"io/fs"
	"os"

	"biblomnemon/db"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

// migrationSource returns the filesystem goose reads from. MIGRATIONS_DIR
// points at files on disk; without it the migrations built into the binary
// are used.
func migrationSource() (fs.FS, string) {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return nil, v
	}
	return db.Migrations, "migrations"
}
