package entity

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Los campos propios de cada tipo de comprobante se persisten como JSON
// en la columna payload; la cabecera común va en columnas.

type invoicePayload struct {
	Lines    []DocumentLine `json:"lines"`
	Payments []Payment      `json:"payments,omitempty"`
}

type creditNotePayload struct {
	Lines    []DocumentLine   `json:"lines"`
	Modified ModifiedDocument `json:"modified"`
	Reason   string           `json:"reason"`
}

type debitNotePayload struct {
	Modified          ModifiedDocument `json:"modified"`
	Reasons           []DebitReason    `json:"reasons"`
	TaxPercentageCode string           `json:"tax_percentage_code"`
	TaxRate           string           `json:"tax_rate"`
}

type retentionPayload struct {
	FiscalPeriod string         `json:"fiscal_period"`
	Taxes        []RetentionTax `json:"taxes"`
}

// MarshalDocumentPayload serializa la parte específica del comprobante.
func MarshalDocumentPayload(doc SRIDocument) ([]byte, error) {
	var v any
	switch d := doc.(type) {
	case *Invoice:
		v = invoicePayload{Lines: d.Lines, Payments: d.Payments}
	case *CreditNote:
		v = creditNotePayload{Lines: d.Lines, Modified: d.Modified, Reason: d.Reason}
	case *DebitNote:
		v = debitNotePayload{Modified: d.Modified, Reasons: d.Reasons,
			TaxPercentageCode: d.TaxPercentageCode, TaxRate: d.TaxRate.String()}
	case *Retention:
		v = retentionPayload{FiscalPeriod: d.FiscalPeriod, Taxes: d.Taxes}
	default:
		return nil, fmt.Errorf("tipo de comprobante no soportado: %T", doc)
	}
	return json.Marshal(v)
}

// NewDocument reconstruye el comprobante concreto a partir de la cabecera y su payload.
func NewDocument(base ElectronicDocument, payload []byte) (SRIDocument, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	switch base.Type {
	case DocumentTypeInvoice:
		var p invoicePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("payload factura: %w", err)
		}
		return &Invoice{ElectronicDocument: base, Lines: p.Lines, Payments: p.Payments}, nil
	case DocumentTypeCreditNote:
		var p creditNotePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("payload nota de crédito: %w", err)
		}
		return &CreditNote{ElectronicDocument: base, Lines: p.Lines, Modified: p.Modified, Reason: p.Reason}, nil
	case DocumentTypeDebitNote:
		var p debitNotePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("payload nota de débito: %w", err)
		}
		d := &DebitNote{ElectronicDocument: base, Modified: p.Modified, Reasons: p.Reasons, TaxPercentageCode: p.TaxPercentageCode}
		if p.TaxRate != "" {
			rate, err := decimal.NewFromString(p.TaxRate)
			if err != nil {
				return nil, fmt.Errorf("payload nota de débito: %w", err)
			}
			d.TaxRate = rate
		}
		return d, nil
	case DocumentTypeRetention:
		var p retentionPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("payload retención: %w", err)
		}
		return &Retention{ElectronicDocument: base, FiscalPeriod: p.FiscalPeriod, Taxes: p.Taxes}, nil
	}
	return nil, fmt.Errorf("tipo de comprobante desconocido %q", base.Type)
}

// RecalculateTotals recalcula los totales del comprobante concreto.
func RecalculateTotals(doc SRIDocument) {
	switch d := doc.(type) {
	case *Invoice:
		d.RecalculateTotals()
	case *CreditNote:
		d.RecalculateTotals()
	case *DebitNote:
		d.RecalculateTotals()
	case *Retention:
		d.RecalculateTotals()
	}
}
