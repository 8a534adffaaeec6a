package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Documents DocumentService
	SRI       SRIWorkflow
	Sequences SequenceAllocator
	JWTSecret string
	Log       zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer)
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)

	// Comprobantes y flujo SRI
	documents := protected.Group("/documents")
	docHandler := NewDocumentHandler(deps.Documents, deps.SRI, deps.Log)
	documents.Post("/", writers, docHandler.Create)
	documents.Get("/:id", anyRole, docHandler.GetByID)
	documents.Post("/:id/status", writers, docHandler.ChangeStatus)
	documents.Post("/:id/xml", writers, docHandler.GenerateXml)
	documents.Post("/:id/sign", writers, docHandler.SignXml)
	documents.Post("/:id/submit", writers, docHandler.SubmitToSri)
	documents.Post("/:id/authorization", writers, docHandler.CheckAuthorization)
	documents.Post("/:id/ride", writers, docHandler.GenerateRide)
	documents.Get("/:id/ride", anyRole, docHandler.DownloadRide)
	documents.Get("/:id/errors", anyRole, docHandler.ListErrors)

	// Secuenciales (solo admin)
	points := protected.Group("/emission-points", RequireRole(jwt.RoleAdmin))
	seqHandler := NewSequenceHandler(deps.Sequences, deps.Log)
	points.Post("/:id/sequences/:type", seqHandler.AllocateNext)
}
