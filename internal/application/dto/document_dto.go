package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateDocumentRequest body para POST /api/documents.
// Según Type se usan Lines/Payments (01), Lines/Modified/Reason (04),
// Modified/Reasons/TaxPercentageCode (05) o FiscalPeriod/Taxes (07).
type CreateDocumentRequest struct {
	Type            string `json:"type"` // 01 | 04 | 05 | 07
	EmissionPointID string `json:"emission_point_id"`
	IssueDate       string `json:"issue_date"` // YYYY-MM-DD

	BuyerIDType  string `json:"buyer_id_type"`
	BuyerID      string `json:"buyer_id"`
	BuyerName    string `json:"buyer_name"`
	BuyerEmail   string `json:"buyer_email,omitempty"`
	BuyerAddress string `json:"buyer_address,omitempty"`

	Lines    []DocumentLineRequest `json:"lines,omitempty"`
	Payments []PaymentRequest      `json:"payments,omitempty"`

	Modified          *ModifiedDocumentRequest `json:"modified,omitempty"`
	Reason            string                   `json:"reason,omitempty"`
	Reasons           []DebitReasonRequest     `json:"reasons,omitempty"`
	TaxPercentageCode string                   `json:"tax_percentage_code,omitempty"`

	FiscalPeriod string                `json:"fiscal_period,omitempty"` // mm/aaaa
	Taxes        []RetentionTaxRequest `json:"taxes,omitempty"`
}

// DocumentLineRequest línea de detalle.
type DocumentLineRequest struct {
	Code              string          `json:"code"`
	AuxiliaryCode     string          `json:"auxiliary_code,omitempty"`
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Discount          decimal.Decimal `json:"discount"`
	TaxPercentageCode string          `json:"tax_percentage_code"`
}

// PaymentRequest forma de pago (Tabla 24).
type PaymentRequest struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
	Term   int             `json:"term,omitempty"`
	Unit   string          `json:"unit,omitempty"`
}

// ModifiedDocumentRequest documento de sustento de notas de crédito y débito.
type ModifiedDocumentRequest struct {
	Type      string `json:"type"`
	Number    string `json:"number"`     // 001-001-000000123
	IssueDate string `json:"issue_date"` // YYYY-MM-DD
}

// DebitReasonRequest motivo de nota de débito.
type DebitReasonRequest struct {
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
}

// RetentionTaxRequest impuesto retenido.
type RetentionTaxRequest struct {
	TaxCode          string          `json:"tax_code"`
	RetentionCode    string          `json:"retention_code"`
	TaxBase          decimal.Decimal `json:"tax_base"`
	Percentage       decimal.Decimal `json:"percentage"`
	SupportDocType   string          `json:"support_doc_type"`
	SupportDocNumber string          `json:"support_doc_number"`
	SupportDocDate   string          `json:"support_doc_date"` // YYYY-MM-DD
}

// ChangeStatusRequest body para POST /api/documents/:id/status (ciclo comercial).
type ChangeStatusRequest struct {
	Status string `json:"status"` // SENT | PAID | OVERDUE | CANCELLED | VOIDED
}

// DocumentResponse comprobante en respuestas.
type DocumentResponse struct {
	ID                  string          `json:"id"`
	Type                string          `json:"type"`
	EmissionPointID     string          `json:"emission_point_id"`
	Sequential          int64           `json:"sequential"`
	IssueDate           string          `json:"issue_date"`
	Status              string          `json:"status"`
	Environment         string          `json:"environment"`
	AccessKey           string          `json:"access_key,omitempty"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time      `json:"authorized_at,omitempty"`
	BuyerIDType         string          `json:"buyer_id_type"`
	BuyerID             string          `json:"buyer_id"`
	BuyerName           string          `json:"buyer_name"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxTotal            decimal.Decimal `json:"tax_total"`
	Total               decimal.Decimal `json:"total"`
	HasXML              bool            `json:"has_xml"`
	HasSignedXML        bool            `json:"has_signed_xml"`
	HasRide             bool            `json:"has_ride"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// SRIOperationResult resultado de una operación del flujo SRI.
type SRIOperationResult struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Document *DocumentResponse `json:"document,omitempty"`
}

// SRIErrorLogResponse entrada del log de errores SRI.
type SRIErrorLogResponse struct {
	ID             string    `json:"id"`
	Operation      string    `json:"operation"`
	ErrorCode      string    `json:"error_code"`
	Message        string    `json:"message"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SequenceResponse secuencial asignado por POST /api/emission-points/:id/sequences/:type.
type SequenceResponse struct {
	EmissionPointID string `json:"emission_point_id"`
	DocumentType    string `json:"document_type"`
	Sequential      int64  `json:"sequential"`
}
