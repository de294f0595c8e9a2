package featuredb

import (
	"fmt"
	"io"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching. Output
// goes to out; failures are returned for the caller to report.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(out)
		return nil
	}

	// Open without migrating; the subcommand manages the schema.
	store, err := OpenNoMigrate(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch action {
	case "up":
		if err := store.MigrateUp(); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ All migrations applied successfully")
		return printVersion(store, out)

	case "down":
		if err := store.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Migration rolled back successfully")
		return printVersion(store, out)

	case "status":
		return printStatus(store, out)

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: featuredb migrate force <version_number>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if err := store.MigrateForce(v); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Migration version forced to %d\n", v)
		return nil

	default:
		fmt.Fprintf(out, "Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

func printVersion(store *Store, out io.Writer) error {
	version, dirty, err := store.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

// printStatus displays the current migration status
func printStatus(store *Store, out io.Writer) error {
	version, dirty, err := store.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestVersion()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Migration Status ===")
	fmt.Fprintf(out, "Current version: %d\n", version)
	fmt.Fprintf(out, "Latest version: %d\n", latest)
	fmt.Fprintf(out, "Dirty: %v\n", dirty)
	if dirty {
		fmt.Fprintln(out, "\n⚠️  WARNING: Database is in a dirty state!")
		fmt.Fprintln(out, "A migration failed mid-execution. Inspect the database, then run:")
		fmt.Fprintln(out, "  featuredb migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp lists the migrate subcommands.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprintln(out, "Feature Database Migration Commands")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: featuredb -db <path> migrate <command> [options]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  up              Apply all pending migrations")
	fmt.Fprintln(out, "  down            Rollback one migration")
	fmt.Fprintln(out, "  status          Show current and latest migration version")
	fmt.Fprintln(out, "  force <N>       Force migration version to N (recovery only)")
	fmt.Fprintln(out, "  help            Show this help message")
}
