package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// SequenceAllocator asignación directa de secuenciales (lo implementa *billing.SequenceUseCase).
type SequenceAllocator interface {
	AllocateNext(ctx context.Context, tenantID, emissionPointID, docType string) (*dto.SequenceResponse, error)
}

var _ SequenceAllocator = (*billing.SequenceUseCase)(nil)

// SequenceHandler secuenciales por punto de emisión (solo admin).
type SequenceHandler struct {
	uc  SequenceAllocator
	log zerolog.Logger
}

// NewSequenceHandler construye el handler.
func NewSequenceHandler(uc SequenceAllocator, log zerolog.Logger) *SequenceHandler {
	return &SequenceHandler{uc: uc, log: log}
}

// AllocateNext godoc
// @Summary      Asignar el siguiente secuencial
// @Tags         sequences
// @Security     Bearer
// @Produce      json
// @Param        id    path  string  true  "ID del punto de emisión"
// @Param        type  path  string  true  "Tipo de comprobante (01, 04, 05, 07)"
// @Success      200   {object}  dto.SequenceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/emission-points/{id}/sequences/{type} [post]
func (h *SequenceHandler) AllocateNext(c *fiber.Ctx) error {
	out, err := h.uc.AllocateNext(c.UserContext(), GetTenantID(c), c.Params("id"), c.Params("type"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
