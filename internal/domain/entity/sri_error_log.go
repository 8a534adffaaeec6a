package entity

import "time"

// Operaciones registradas en el log de errores SRI.
const (
	OperationGenerateXML        = "GenerateXml"
	OperationSignXML            = "SignXml"
	OperationSubmitToSRI        = "SubmitToSri"
	OperationCheckAuthorization = "CheckAuthorization"
	OperationGenerateRide       = "GenerateRide"
)

// ErrorCodeSOAP código fijo cuando la llamada al web service falló por transporte o excepción.
const ErrorCodeSOAP = "SOAP_ERROR"

// SRIErrorLog registro de auditoría de una operación fallida. Solo se inserta, nunca se modifica.
type SRIErrorLog struct {
	ID             string
	TenantID       string
	DocumentID     string
	Operation      string
	ErrorCode      string
	Message        string
	AdditionalInfo string
	CreatedAt      time.Time
}
