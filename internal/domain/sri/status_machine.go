package sri

import (
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// allowedTransitions tabla de transiciones legales del comprobante.
// Las autotransiciones de PendingSignature y PendingAuthorization corresponden a
// regeneración del XML o nueva firma antes de la autorización.
var allowedTransitions = map[entity.DocumentStatus][]entity.DocumentStatus{
	entity.StatusDraft: {
		entity.StatusPendingSignature,
		entity.StatusCancelled,
	},
	entity.StatusPendingSignature: {
		entity.StatusPendingSignature,
		entity.StatusPendingAuthorization,
	},
	entity.StatusPendingAuthorization: {
		entity.StatusPendingAuthorization,
		entity.StatusAuthorized,
		entity.StatusRejected,
	},
	// Solo mediante un ciclo nuevo (XML regenerado y firmado otra vez).
	entity.StatusRejected: {
		entity.StatusPendingAuthorization,
	},
	// Ciclo comercial posterior a la autorización (fuera del flujo SRI).
	entity.StatusAuthorized: {
		entity.StatusSent,
		entity.StatusPaid,
		entity.StatusVoided,
	},
	entity.StatusSent: {
		entity.StatusPaid,
		entity.StatusOverdue,
		entity.StatusVoided,
	},
	entity.StatusOverdue: {
		entity.StatusPaid,
		entity.StatusVoided,
	},
}

// sriFlowStatuses estados en los que interviene el flujo de emisión SRI.
var sriFlowStatuses = map[entity.DocumentStatus]bool{
	entity.StatusDraft:                true,
	entity.StatusPendingSignature:     true,
	entity.StatusPendingAuthorization: true,
	entity.StatusRejected:             true,
}

// CanTransition indica si from → to está en la tabla.
func CanTransition(from, to entity.DocumentStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition valida from → to y devuelve *domain.StateTransitionError si no está permitida.
func Transition(from, to entity.DocumentStatus) error {
	if !CanTransition(from, to) {
		return &domain.StateTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// IsTerminal indica si el estado ya no admite transiciones del flujo SRI.
func IsTerminal(s entity.DocumentStatus) bool {
	return !sriFlowStatuses[s]
}

// Apply valida la transición y la aplica sobre el comprobante.
func Apply(doc *entity.ElectronicDocument, to entity.DocumentStatus) error {
	if err := Transition(doc.Status, to); err != nil {
		return err
	}
	doc.Status = to
	return nil
}
