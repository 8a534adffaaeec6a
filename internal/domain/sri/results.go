package sri

import (
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// SubmissionResult respuesta de RecepcionComprobantesOffline.validarComprobante.
// IsSuccess es verdadero solo con estado RECIBIDA.
type SubmissionResult struct {
	IsSuccess bool
	Status    string // RECIBIDA | DEVUELTA
	Message   string
	Errors    []domain.SRIMessage
}

// AuthorizationResult respuesta de AutorizacionComprobantesOffline.autorizacionComprobante.
type AuthorizationResult struct {
	IsAuthorized        bool
	Status              string // AUTORIZADO | NO AUTORIZADO | RECHAZADA | EN PROCESO
	AuthorizationNumber string
	AuthorizationDate   *time.Time
	Errors              []domain.SRIMessage
	AuthorizedXML       string
}
