//go:build ignore

// Command generate_schema regenerates internal/database/schema.go from
// the migration files. Run it from the repository root:
//
//	go run internal/database/tools/generate_schema.go
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"astrocat/internal/database"
	"astrocat/internal/database/migrations"
)

func main() {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	schema, err := extractSchema(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extracting schema: %v\n", err)
		os.Exit(1)
	}

	var b strings.Builder
	b.WriteString("// Code generated by internal/database/tools/generate_schema.go; DO NOT EDIT.\n\n")
	b.WriteString("package database\n\n")
	b.WriteString("// Schema is the flattened catalog schema at the latest migration\n")
	b.WriteString("// version. Tests apply it directly to in-memory databases instead of\n")
	b.WriteString("// running the migration chain.\n")
	b.WriteString("const Schema = `")
	b.WriteString(schema)
	b.WriteString("`\n")

	outPath := filepath.Join("internal", "database", "schema.go")
	if err := os.WriteFile(outPath, []byte(b.String()), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("generated %s from migrations\n", outPath)
}

// extractSchema reads all CREATE statements from sqlite_master,
// skipping SQLite internals and the migration tracking table.
func extractSchema(db *sql.DB) (string, error) {
	query := `
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_migrations'
		  AND tbl_name != 'schema_migrations'
		ORDER BY
		  CASE type WHEN 'table' THEN 0 ELSE 1 END,
		  name`

	rows, err := db.Query(query)
	if err != nil {
		return "", fmt.Errorf("querying sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scanning statement: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	return b.String(), rows.Err()
}
