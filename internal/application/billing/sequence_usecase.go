package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// SequenceUseCase asigna secuenciales por punto de emisión y tipo de comprobante.
type SequenceUseCase struct {
	pointRepo repository.EmissionPointRepository
}

// NewSequenceUseCase construye el caso de uso.
func NewSequenceUseCase(pointRepo repository.EmissionPointRepository) *SequenceUseCase {
	return &SequenceUseCase{pointRepo: pointRepo}
}

// AllocateNext incrementa y devuelve el siguiente secuencial. El valor nunca se reutiliza,
// aunque el comprobante que lo use termine rechazado.
func (uc *SequenceUseCase) AllocateNext(ctx context.Context, tenantID, emissionPointID, docType string) (*dto.SequenceResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	t := entity.DocumentType(docType)
	if !t.Valid() {
		return nil, fmt.Errorf("%w: tipo de comprobante %q no soportado", domain.ErrInvalidArgument, docType)
	}
	if emissionPointID == "" {
		return nil, fmt.Errorf("%w: punto de emisión requerido", domain.ErrInvalidArgument)
	}
	seq, err := uc.pointRepo.AllocateNext(ctx, tenantID, emissionPointID, t)
	if err != nil {
		return nil, err
	}
	return &dto.SequenceResponse{EmissionPointID: emissionPointID, DocumentType: docType, Sequential: seq}, nil
}
