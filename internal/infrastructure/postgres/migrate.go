package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate aplica (up) o revierte (down) las migraciones embebidas sobre databaseURL.
// steps <= 0 aplica todas las pendientes; con down revierte solo steps migraciones.
func Migrate(databaseURL, direction string, steps int, log zerolog.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("abrir migraciones embebidas: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("crear migrate para %s: %w", redactedURL(databaseURL), err)
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps <= 0 {
			steps = 1
		}
		err = m.Steps(-steps)
	default:
		return fmt.Errorf("dirección de migración %q no soportada (up|down)", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("sin migraciones pendientes")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migración %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("leer versión: %w", err)
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Str("direction", direction).Msg("migraciones aplicadas")
	return nil
}
