package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/database"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "number of migrations to apply; 0 applies all")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := database.NewMigrator(dbURL)
	if err != nil {
		log.WithError(err).Fatal("Could not create migration instance")
	}
	defer m.Close()

	switch {
	case *steps != 0 && *direction == "down":
		err = m.Steps(-*steps)
	case *steps != 0:
		err = m.Steps(*steps)
	case *direction == "down":
		err = m.Down()
	case *direction == "up":
		err = m.Up()
	default:
		log.Fatalf("Unknown direction %q", *direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithError(err).Fatal("Could not apply migration")
	}

	version, dirty, _ := m.Version()
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("Migrations applied")
}
