package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// SRIConfigurationRepository puerto de persistencia para la configuración SRI del tenant.
type SRIConfigurationRepository interface {
	// GetByTenantID devuelve (nil, nil) si el tenant no tiene configuración.
	GetByTenantID(ctx context.Context, tenantID string) (*entity.SRIConfiguration, error)
	Upsert(ctx context.Context, cfg *entity.SRIConfiguration) error
}

// SRIErrorLogRepository registro append-only de errores SRI.
type SRIErrorLogRepository interface {
	Add(ctx context.Context, entry *entity.SRIErrorLog) error
	// GetByDocumentID lista los errores del comprobante en orden cronológico.
	GetByDocumentID(ctx context.Context, tenantID, documentID string) ([]*entity.SRIErrorLog, error)
}
