package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// DocumentService casos de uso sobre el comprobante (lo implementa *billing.DocumentUseCase).
type DocumentService interface {
	CreateDraft(ctx context.Context, tenantID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, tenantID, id string) (*dto.DocumentResponse, error)
	DownloadRide(ctx context.Context, tenantID, id string) ([]byte, string, error)
	ChangeStatus(ctx context.Context, tenantID, id string, in dto.ChangeStatusRequest) (*dto.DocumentResponse, error)
}

// SRIWorkflow pasos del flujo SRI (lo implementa *billing.SRIOrchestrator).
type SRIWorkflow interface {
	GenerateXml(ctx context.Context, tenantID, documentID string) (*dto.SRIOperationResult, error)
	SignXml(ctx context.Context, tenantID, documentID string) (*dto.SRIOperationResult, error)
	SubmitToSri(ctx context.Context, tenantID, documentID string) (*dto.SRIOperationResult, error)
	CheckAuthorization(ctx context.Context, tenantID, documentID string) (*dto.SRIOperationResult, error)
	GenerateRide(ctx context.Context, tenantID, documentID string) (*dto.SRIOperationResult, error)
	ListErrors(ctx context.Context, tenantID, documentID string) ([]dto.SRIErrorLogResponse, error)
}

var (
	_ DocumentService = (*billing.DocumentUseCase)(nil)
	_ SRIWorkflow     = (*billing.SRIOrchestrator)(nil)
)

// DocumentHandler comprobantes electrónicos y su ciclo frente al SRI (protegido).
type DocumentHandler struct {
	docs DocumentService
	sri  SRIWorkflow
	log  zerolog.Logger
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(docs DocumentService, sri SRIWorkflow, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, sri: sri, log: log}
}

// Create godoc
// @Summary      Crear comprobante en borrador
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDocumentRequest  true  "Datos del comprobante"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.docs.CreateDraft(c.UserContext(), GetTenantID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener comprobante por ID
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.docs.GetDocument(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// ChangeStatus godoc
// @Summary      Cambiar estado comercial (SENT, PAID, OVERDUE, CANCELLED, VOIDED)
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del comprobante"
// @Param        body  body  dto.ChangeStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.DocumentResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/status [post]
func (h *DocumentHandler) ChangeStatus(c *fiber.Ctx) error {
	var in dto.ChangeStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.docs.ChangeStatus(c.UserContext(), GetTenantID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GenerateXml godoc
// @Summary      Generar XML del comprobante
// @Tags         sri
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.SRIOperationResult
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/xml [post]
func (h *DocumentHandler) GenerateXml(c *fiber.Ctx) error {
	return h.runStep(c, h.sri.GenerateXml)
}

// SignXml godoc
// @Summary      Firmar XML (XAdES-BES)
// @Tags         sri
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.SRIOperationResult
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/sign [post]
func (h *DocumentHandler) SignXml(c *fiber.Ctx) error {
	return h.runStep(c, h.sri.SignXml)
}

// SubmitToSri godoc
// @Summary      Enviar comprobante firmado al SRI (recepción)
// @Tags         sri
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.SRIOperationResult
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/submit [post]
func (h *DocumentHandler) SubmitToSri(c *fiber.Ctx) error {
	return h.runStep(c, h.sri.SubmitToSri)
}

// CheckAuthorization godoc
// @Summary      Consultar autorización en el SRI
// @Tags         sri
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.SRIOperationResult
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/authorization [post]
func (h *DocumentHandler) CheckAuthorization(c *fiber.Ctx) error {
	return h.runStep(c, h.sri.CheckAuthorization)
}

// GenerateRide godoc
// @Summary      Generar RIDE (PDF) de un comprobante autorizado
// @Tags         sri
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.SRIOperationResult
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/ride [post]
func (h *DocumentHandler) GenerateRide(c *fiber.Ctx) error {
	return h.runStep(c, h.sri.GenerateRide)
}

// DownloadRide godoc
// @Summary      Descargar el RIDE en PDF
// @Tags         documents
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/ride [get]
func (h *DocumentHandler) DownloadRide(c *fiber.Ctx) error {
	pdf, filename, err := h.docs.DownloadRide(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(filename))
	return c.Send(pdf)
}

// ListErrors godoc
// @Summary      Log de errores SRI del comprobante
// @Tags         sri
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {array}   dto.SRIErrorLogResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/errors [get]
func (h *DocumentHandler) ListErrors(c *fiber.Ctx) error {
	out, err := h.sri.ListErrors(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

type sriStep func(ctx context.Context, tenantID, documentID string) (*dto.SRIOperationResult, error)

func (h *DocumentHandler) runStep(c *fiber.Ctx, step sriStep) error {
	out, err := step(c.UserContext(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
