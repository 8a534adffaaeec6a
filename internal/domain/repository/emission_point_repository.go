package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// EstablishmentRepository puerto de persistencia para establecimientos.
type EstablishmentRepository interface {
	Create(ctx context.Context, est *entity.Establishment) error
	GetByID(ctx context.Context, id string) (*entity.Establishment, error)
}

// EmissionPointRepository puerto de persistencia para puntos de emisión y sus secuenciales.
type EmissionPointRepository interface {
	Create(ctx context.Context, point *entity.EmissionPoint) error
	GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error)

	// AllocateNext incrementa y devuelve el secuencial del tipo de comprobante en una sola
	// operación atómica contra la base de datos. Dos llamadas concurrentes nunca devuelven
	// el mismo valor. Devuelve domain.ErrNotFound si el punto no pertenece al tenant y
	// domain.ErrPreconditionFailed si está inactivo o el secuencial se agotó.
	AllocateNext(ctx context.Context, tenantID, emissionPointID string, docType entity.DocumentType) (int64, error)
}
