package db

import (
	"fmt"
	"io"
	"strconv"
)

// RunMigrateCommand handles the "migrate" subcommand: up, down, status,
// force <version>.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("migrate: missing action")
	}

	database, err := openRaw(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Migrations applied")

	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Rolled back one migration")

	case "status":
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			return err
		}
		latest, err := LatestMigrationVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Current version: %d\n", version)
		fmt.Fprintf(out, "Latest version: %d\n", latest)
		fmt.Fprintf(out, "Dirty: %v\n", dirty)

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: putt migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.MigrateForce(v); err != nil {
			return err
		}
		fmt.Fprintf(out, "Forced version %d\n", v)

	case "help":
		PrintMigrateHelp(out)

	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}
	return nil
}

// PrintMigrateHelp writes usage for the migrate subcommand.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: putt migrate <action>")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Actions:")
	fmt.Fprintln(out, "  up              Apply all pending migrations")
	fmt.Fprintln(out, "  down            Roll back the most recent migration")
	fmt.Fprintln(out, "  status          Show current and latest migration versions")
	fmt.Fprintln(out, "  force <N>       Record version N without running migrations")
}
