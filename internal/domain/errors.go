package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidArgument        = errors.New("argumento inválido")
	ErrInvalidAccessKey       = errors.New("clave de acceso inválida")
	ErrConfigurationMissing   = errors.New("configuración SRI no encontrada")
	ErrCertificateMissing     = errors.New("certificado digital no configurado")
	ErrCertificateExpired     = errors.New("certificado digital expirado")
	ErrPreconditionFailed     = errors.New("precondición no cumplida")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrFileNotFound           = errors.New("archivo no encontrado")
	ErrRemoteSubmissionFailed = errors.New("el SRI rechazó el comprobante")
	ErrUnexpectedFailure      = errors.New("error inesperado procesando el comprobante")
	ErrTenantRequired         = errors.New("tenant no especificado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
)

// StateTransitionError describe una transición rechazada por la máquina de estados.
type StateTransitionError struct {
	From string
	To   string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("%s: %s → %s", ErrInvalidStateTransition.Error(), e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// SRIMessage mensaje estructurado devuelto por los web services del SRI.
type SRIMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Info    string `json:"info,omitempty"`
	Type    string `json:"type,omitempty"` // ERROR | ADVERTENCIA | INFORMATIVO
}

func (m SRIMessage) String() string {
	if m.Info != "" {
		return fmt.Sprintf("[%s] %s (%s)", m.Code, m.Message, m.Info)
	}
	return fmt.Sprintf("[%s] %s", m.Code, m.Message)
}

// RemoteRejectionError el SRI respondió correctamente a nivel de transporte pero rechazó el comprobante.
type RemoteRejectionError struct {
	Operation string
	Status    string
	Messages  []SRIMessage
}

func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrRemoteSubmissionFailed.Error(), e.Status, joinMessages(e.Messages))
}

func (e *RemoteRejectionError) Unwrap() error { return ErrRemoteSubmissionFailed }

// PriorRejectionError se devuelve al intentar reenviar un comprobante RECHAZADO sin regenerarlo.
// Lleva los mensajes registrados en el log de errores SRI.
type PriorRejectionError struct {
	Messages []SRIMessage
}

func (e *PriorRejectionError) Error() string {
	msg := ErrPreconditionFailed.Error() + ": el comprobante fue rechazado por el SRI; regenere el XML antes de reenviarlo"
	if len(e.Messages) == 0 {
		return msg
	}
	return msg + ". Errores previos: " + joinMessages(e.Messages)
}

func (e *PriorRejectionError) Unwrap() error { return ErrPreconditionFailed }

func joinMessages(msgs []SRIMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "; ")
}
