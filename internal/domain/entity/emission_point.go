package entity

import "time"

// Establishment establecimiento del contribuyente registrado en el SRI (código de 3 dígitos).
type Establishment struct {
	ID        string
	TenantID  string
	Code      string // ej: "001"
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmissionPoint punto de emisión de un establecimiento. Lleva un secuencial
// independiente por tipo de comprobante; los valores solo crecen y nunca se reutilizan.
type EmissionPoint struct {
	ID                 string
	TenantID           string
	EstablishmentID    string
	Code               string // ej: "001"
	InvoiceSequence    int64  // último secuencial emitido de facturas
	CreditNoteSequence int64
	DebitNoteSequence  int64
	RetentionSequence  int64
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MaxSequential límite del campo secuencial (9 dígitos).
const MaxSequential = 999_999_999

// CurrentSequence devuelve el último secuencial emitido para el tipo indicado.
func (p *EmissionPoint) CurrentSequence(t DocumentType) (int64, bool) {
	switch t {
	case DocumentTypeInvoice:
		return p.InvoiceSequence, true
	case DocumentTypeCreditNote:
		return p.CreditNoteSequence, true
	case DocumentTypeDebitNote:
		return p.DebitNoteSequence, true
	case DocumentTypeRetention:
		return p.RetentionSequence, true
	}
	return 0, false
}
