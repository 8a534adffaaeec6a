// migrate aplica o revierte el esquema PostgreSQL embebido en el binario.
//
// Uso: go run ./cmd/migrate [-steps N] up|down
// Con DB_DRIVER=sqlite no hace nada: el esquema se crea con AutoMigrate al arrancar la API.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	steps := flag.Int("steps", 0, "cantidad de migraciones (0 = todas con up, 1 con down)")
	flag.Parse()

	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}
	if direction != "up" && direction != "down" {
		fmt.Fprintln(os.Stderr, "uso: migrate [-steps N] up|down")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	if cfg.DB.Driver != "postgres" {
		log.Info().Str("driver", cfg.DB.Driver).Msg("driver sin migraciones SQL; nada que hacer")
		return
	}
	if err := postgres.Migrate(cfg.DB.ConnectionString(), direction, *steps, log.Zerolog()); err != nil {
		log.Fatal().Err(err).Msg("migración fallida")
	}
}
