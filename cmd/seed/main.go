package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/wattwise/wattwise/pkg/catalog"
	"github.com/wattwise/wattwise/pkg/log"
)

func main() {
	projectID := lflag.String("project-id", "wattwise-dev", "Google Cloud Project ID to seed")
	database := lflag.String("database", "", "Firestore database to seed")
	emulator := lflag.String("emulator", "127.0.0.1:8087", "Firestore emulator host:port, empty to seed a real project")
	file := lflag.String("file", "", "YAML catalog to seed instead of the built-in one")
	lflag.Configure()

	ctx := context.Background()

	// set this because that's how firestore client expects it
	if *emulator != "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
	}

	d := catalog.Fallback()
	if *file != "" {
		b, err := os.ReadFile(*file)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to read catalog file", slog.String("file", *file), slog.Any("error", err))
			os.Exit(1)
		}
		d, err = catalog.ParseDataset(b)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to parse catalog file", slog.String("file", *file), slog.Any("error", err))
			os.Exit(1)
		}
	}

	fs := catalog.NewFirestoreSource(*projectID, *database, d.Tariff)
	if err := fs.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to init firestore", slog.Any("error", err))
		os.Exit(1)
	}
	defer fs.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding catalog", slog.String("projectID", *projectID), slog.String("emulator", *emulator))
	if err := fs.Seed(ctx, d, time.Now()); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed catalog", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
}
