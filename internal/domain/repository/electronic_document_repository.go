package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ElectronicDocumentRepository define el puerto de persistencia para comprobantes electrónicos.
// GetByID devuelve (nil, nil) si el comprobante no existe o fue eliminado.
type ElectronicDocumentRepository interface {
	Create(ctx context.Context, doc entity.SRIDocument) error
	GetByID(ctx context.Context, id string) (entity.SRIDocument, error)
	// Update persiste estado, rutas de artefactos, clave de acceso y datos de autorización.
	Update(ctx context.Context, doc entity.SRIDocument) error
}
