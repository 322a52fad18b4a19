// Command migrate manages the database schema.
//
//	migrate up | down | status | to <version>
//	migrate new <name>
//	migrate check
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/db"
	"github.com/phuoc-stack/foodapp-backend/pkg/env"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/migrate"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|status|to <version>|new <name>|check")
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	// authoring commands never open a connection
	switch cmd {
	case "new":
		if len(args) == 0 {
			fail("new needs a migration name")
		}
		path, err := migrate.Scaffold(migrate.SourceDir, args[0], time.Now())
		if err != nil {
			fail("scaffold migration: %v", err)
		}
		fmt.Println(path)
		return
	case "check":
		if err := migrate.Check(os.DirFS(migrate.SourceDir)); err != nil {
			fail("%v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	_ = godotenv.Load(env.DotEnvFiles()...)
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{ServiceName: "migrate", Level: cfg.App.LogLevel})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		logg.Error(ctx, "failed to open sql handle", err)
		os.Exit(1)
	}
	m, err := migrate.New(sqlDB, dbClient.Dialect())
	if err != nil {
		logg.Error(ctx, "failed to build migrator", err)
		os.Exit(1)
	}

	if err := run(ctx, m, cmd, args); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, m *migrate.Migrator, cmd string, args []string) error {
	switch cmd {
	case "up":
		results, err := m.Up(ctx)
		printResults(results)
		return err
	case "down":
		result, err := m.Down(ctx)
		if result != nil {
			printResults([]*goose.MigrationResult{result})
		}
		return err
	case "to":
		if len(args) == 0 {
			return fmt.Errorf("to needs a version")
		}
		version, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", args[0], err)
		}
		results, err := m.To(ctx, version)
		printResults(results)
		return err
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-8s %-25s %s\n", s.State, applied, s.Source.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printResults(results []*goose.MigrationResult) {
	for _, r := range results {
		fmt.Printf("%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond))
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
