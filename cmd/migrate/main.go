// migrate runs DB migrations from embedded SQL; use with go run ./cmd/migrate -direction up|down.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/project-queyk/queyk-backend/internal/config"
	"github.com/project-queyk/queyk-backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env or set DATABASE_URL")
		os.Exit(1)
	}

	version, err := migrate.Run(cfg.DatabaseURL, dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrate %s: schema at version %d\n", dir, version)
}
