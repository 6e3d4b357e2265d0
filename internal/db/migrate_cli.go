package db

import (
	"fmt"
	"io"
	"strconv"
)

// RunMigrateCommand handles the -migrate flag: up, down, status or
// version <n>. Output goes to w.
func RunMigrateCommand(w io.Writer, database *DB, args []string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("missing migrate action")
	}

	switch action := args[0]; action {
	case "up":
		logf("Running migrations...")
		if err := database.MigrateUp(); err != nil {
			return err
		}
	case "down":
		logf("Rolling back one migration...")
		if err := database.MigrateDown(); err != nil {
			return err
		}
	case "status":
	case "version":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate version <version_number>")
		}
		target, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		logf("Migrating to version %d...", target)
		if err := database.MigrateTo(uint(target)); err != nil {
			return err
		}
	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Current version: %d\n", version)
	fmt.Fprintf(w, "Dirty: %v\n", dirty)
	return nil
}

// PrintMigrateHelp prints the migrate usage.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: movement-report -migrate <action>

Actions:
  up           Apply all pending migrations
  down         Roll back the most recent migration
  status       Show the current schema version
  version <n>  Migrate up or down to version n
`)
}
