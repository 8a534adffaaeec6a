package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// errorMapping status HTTP y código de error para un sentinel de dominio.
type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: los errores estructurados desenvuelven a sentinels más generales.
var errorMappings = []errorMapping{
	{domain.ErrTenantRequired, fiber.StatusUnauthorized, "TENANT_REQUIRED"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrFileNotFound, fiber.StatusNotFound, "FILE_NOT_FOUND"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidAccessKey, fiber.StatusBadRequest, "INVALID_ACCESS_KEY"},
	{domain.ErrInvalidArgument, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrConfigurationMissing, fiber.StatusUnprocessableEntity, "CONFIGURATION_MISSING"},
	{domain.ErrCertificateMissing, fiber.StatusUnprocessableEntity, "CERTIFICATE_MISSING"},
	{domain.ErrCertificateExpired, fiber.StatusUnprocessableEntity, "CERTIFICATE_EXPIRED"},
	{domain.ErrInvalidStateTransition, fiber.StatusConflict, "INVALID_STATE_TRANSITION"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrPreconditionFailed, fiber.StatusConflict, "PRECONDITION_FAILED"},
	{domain.ErrRemoteSubmissionFailed, fiber.StatusUnprocessableEntity, "SRI_REJECTED"},
	{domain.ErrUnexpectedFailure, fiber.StatusBadGateway, "SRI_UNAVAILABLE"},
}

// writeError traduce el error de la capa de aplicación a la respuesta HTTP.
// Los errores no reconocidos responden 500 con un mensaje genérico; el detalle queda en el log.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var prior *domain.PriorRejectionError
	if errors.As(err, &prior) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "PRIOR_REJECTION",
			Message: err.Error(),
			Details: toMessageDTOs(prior.Messages),
		})
	}
	var remote *domain.RemoteRejectionError
	if errors.As(err, &remote) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code:    "SRI_REJECTED",
			Message: err.Error(),
			Details: toMessageDTOs(remote.Messages),
		})
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Msg("fallo en operación SRI")
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Code:    "INTERNAL",
		Message: domain.ErrUnexpectedFailure.Error(),
	})
}

func toMessageDTOs(msgs []domain.SRIMessage) []dto.SRIMessageDTO {
	out := make([]dto.SRIMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.SRIMessageDTO{Code: m.Code, Message: m.Message, Info: m.Info, Type: m.Type})
	}
	return out
}
