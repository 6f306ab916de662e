// Package main is the entrypoint for the plugin-dispatcher host (binary name "dispatcher").
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/morezero/plugin-dispatcher/internal/config"
	"github.com/morezero/plugin-dispatcher/internal/server"
	"github.com/morezero/plugin-dispatcher/pkg/bootstrap"
	"github.com/morezero/plugin-dispatcher/pkg/db"
)

const usage = `Usage: dispatcher [command]
       dispatcher serve                 Start the plugin host (COMMS channels, HTTP ops).
       dispatcher migrate up            Run database migrations.
       dispatcher migrate status        Show migration status.
       dispatcher journal prune [age]   Delete journal entries older than age (default 720h).
       dispatcher check [file]          Validate a bootstrap file and print its registries.

Commands:
  serve           (default) Start the plugin host.
  migrate up      Apply pending migrations from MIGRATION_PATH.
  migrate status  List applied and pending migrations.
  journal prune   Trim the subscription journal.
  check [file]    Load the bootstrap (file, PLUGIN_BOOTSTRAP_FILE or defaults) and report errors.

Environment: COMMS_URL, PLUGIN_CALLSIGN, PLUGIN_BOOTSTRAP_FILE, DATABASE_URL (journal and migrate),
MIGRATION_PATH, HTTP_PORT (default 8080), CHANNEL_RATE_LIMIT, LOG_LEVEL. See README.
`

const defaultPruneAge = 30 * 24 * time.Hour

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("dispatcher migrate: require subcommand (up, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("dispatcher migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("dispatcher migrate status: %v", err)
			}
		default:
			log.Fatalf("dispatcher migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "journal":
		if len(args) < 2 || args[1] != "prune" {
			log.Fatalf("dispatcher journal: require subcommand (prune)")
		}
		age := defaultPruneAge
		if len(args) > 2 {
			d, err := time.ParseDuration(args[2])
			if err != nil || d <= 0 {
				log.Fatalf("dispatcher journal prune: invalid age %q", args[2])
			}
			age = d
		}
		if err := runJournalPrune(age); err != nil {
			log.Fatalf("dispatcher journal prune: %v", err)
		}
		return
	case "check":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		if err := runCheck(os.Stdout, file); err != nil {
			log.Fatalf("dispatcher check: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("dispatcher: %v", err)
	}
}

// openJournal loads config and connects to DATABASE_URL.
func openJournal(ctx context.Context) (*db.Journal, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return db.NewJournal(pool), pool.Close, nil
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	applied, err := db.RunMigrations(ctx, pool, migrations)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	fmt.Printf("Applied %d migration(s).\n", len(applied))
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	_, err = db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	return err
}

func runJournalPrune(age time.Duration) error {
	ctx := context.Background()
	journal, closeDB, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := journal.Prune(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d journal entries older than %s.\n", n, age)
	return nil
}

// runCheck validates the bootstrap config found from file and writes a summary to w.
func runCheck(w io.Writer, file string) error {
	cfg, err := bootstrap.LoadPluginConfig(file)
	if err != nil {
		return err
	}
	resolved, err := bootstrap.CreateResolvedPlugin(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Plugin %s (%s %s)\n", resolved.Callsign(), resolved.Name(), resolved.Version())
	fmt.Fprintf(w, "  registry 0: versions %s (default)\n", resolved.DefaultVersions())
	for i, reg := range resolved.Extra() {
		inherit := ""
		if reg.Inherit {
			inherit = " (inherits default methods)"
		}
		fmt.Fprintf(w, "  registry %d: versions %s%s\n", i+1, reg.Versions, inherit)
	}
	return nil
}
