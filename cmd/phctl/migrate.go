package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var migrationsDir string

// migrateCmd applies every *.up.sql file in the migrations directory. The
// schema_migrations table uses the golang-migrate layout (bigint version plus
// dirty flag) so the two tools are interchangeable.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		out := cmd.OutOrStdout()

		if _, err := db.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version bigint NOT NULL,
				dirty   boolean NOT NULL,
				PRIMARY KEY (version)
			)`); err != nil {
			return fmt.Errorf("create schema_migrations: %w", err)
		}

		files, err := upMigrations(migrationsDir)
		if err != nil {
			return err
		}

		applied := 0
		for _, f := range files {
			ver, err := versionFromFile(f)
			if err != nil {
				return fmt.Errorf("parse version from %s: %w", f, err)
			}

			var exists bool
			if err := db.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1 AND dirty = false)`,
				ver,
			).Scan(&exists); err != nil {
				return fmt.Errorf("check %s: %w", f, err)
			}
			if exists {
				fmt.Fprintf(out, "  skip  %s (already applied)\n", f)
				continue
			}

			sql, err := os.ReadFile(filepath.Join(migrationsDir, f))
			if err != nil {
				return fmt.Errorf("read %s: %w", f, err)
			}

			// Mark dirty before applying so a crash is visible.
			if _, err := db.Exec(ctx,
				`INSERT INTO schema_migrations (version, dirty) VALUES ($1, true)
				 ON CONFLICT (version) DO UPDATE SET dirty = true`, ver,
			); err != nil {
				return fmt.Errorf("mark dirty %s: %w", f, err)
			}
			if _, err := db.Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("apply %s: %w", f, err)
			}
			if _, err := db.Exec(ctx,
				`UPDATE schema_migrations SET dirty = false WHERE version = $1`, ver,
			); err != nil {
				return fmt.Errorf("mark clean %s: %w", f, err)
			}

			fmt.Fprintf(out, "  apply %s\n", f)
			applied++
		}

		if applied == 0 {
			fmt.Fprintln(out, "nothing to migrate, already up to date")
		} else {
			fmt.Fprintf(out, "applied %d migration(s)\n", applied)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "directory holding NNN_name.up.sql files")
}

// upMigrations lists the *.up.sql files in dir in version order.
func upMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// versionFromFile extracts the leading integer from a migration filename.
// "001_init.up.sql" → 1
func versionFromFile(filename string) (int64, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("unexpected filename format")
	}
	return strconv.ParseInt(prefix, 10, 64)
}
