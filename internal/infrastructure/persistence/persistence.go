// Package persistence elige el backend de datos según DB_DRIVER y expone los repositorios
// con las interfaces del dominio: PostgreSQL (pgx) en producción, SQLite (gorm) en desarrollo.
package persistence

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/Facturacion-api/pkg/config"
)

// Store repositorios listos para inyectar en los casos de uso.
type Store struct {
	Driver         string
	Documents      repository.ElectronicDocumentRepository
	Configurations repository.SRIConfigurationRepository
	Establishments repository.EstablishmentRepository
	EmissionPoints repository.EmissionPointRepository
	ErrorLogs      repository.SRIErrorLogRepository
	TxRunner       billing.TxRunner

	close func() error
}

// Close libera el pool o la conexión SQLite.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open conecta con el backend configurado. Con postgres el esquema lo crea cmd/migrate;
// con sqlite se aplica AutoMigrate al abrir.
func Open(ctx context.Context, cfg config.DBConfig, log zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Int32("max_conns", cfg.MaxConns).Msg("conectado a PostgreSQL")
		return &Store{
			Driver:         cfg.Driver,
			Documents:      postgres.NewElectronicDocumentRepository(pool),
			Configurations: postgres.NewSRIConfigurationRepository(pool),
			Establishments: postgres.NewEstablishmentRepository(pool),
			EmissionPoints: postgres.NewEmissionPointRepository(pool),
			ErrorLogs:      postgres.NewSRIErrorLogRepository(pool),
			TxRunner:       postgres.NewTxRunner(pool),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("usando SQLite")
		return &Store{
			Driver:         cfg.Driver,
			Documents:      sqlite.NewDocumentRepository(db),
			Configurations: sqlite.NewConfigurationRepository(db),
			Establishments: sqlite.NewEstablishmentRepository(db),
			EmissionPoints: sqlite.NewEmissionPointRepository(db),
			ErrorLogs:      sqlite.NewErrorLogRepository(db),
			TxRunner:       sqlite.NewTxRunner(db),
			close:          func() error { return sqlite.Close(db) },
		}, nil
	default:
		return nil, fmt.Errorf("persistence: driver %q no soportado", cfg.Driver)
	}
}
