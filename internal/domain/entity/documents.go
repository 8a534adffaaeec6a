package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentLine línea de detalle (factura y nota de crédito).
type DocumentLine struct {
	Code              string          `json:"code"`
	AuxiliaryCode     string          `json:"auxiliary_code,omitempty"`
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Discount          decimal.Decimal `json:"discount"`
	TaxPercentageCode string          `json:"tax_percentage_code"` // codigoPorcentaje IVA
	TaxRate           decimal.Decimal `json:"tax_rate"`            // tarifa % (ej. 15)
}

// Subtotal precioTotalSinImpuesto = cantidad * precio - descuento.
func (l DocumentLine) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Sub(l.Discount).Round(2)
}

// Tax valor del IVA de la línea.
func (l DocumentLine) Tax() decimal.Decimal {
	return l.Subtotal().Mul(l.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
}

// Payment forma de pago declarada en la factura.
type Payment struct {
	Method string          `json:"method"` // Tabla 24
	Amount decimal.Decimal `json:"amount"`
	Term   int             `json:"term,omitempty"`
	Unit   string          `json:"unit,omitempty"` // dias | meses
}

// ModifiedDocument comprobante de sustento de notas de crédito y débito.
type ModifiedDocument struct {
	Type      DocumentType `json:"type"`
	Number    string       `json:"number"` // 001-001-000000123
	IssueDate time.Time    `json:"issue_date"`
}

// TaxSummary total por codigoPorcentaje (totalConImpuestos).
type TaxSummary struct {
	PercentageCode string
	Rate           decimal.Decimal
	Base           decimal.Decimal
	Value          decimal.Decimal
}

// Invoice factura (codDoc 01).
type Invoice struct {
	ElectronicDocument
	Lines    []DocumentLine
	Payments []Payment
}

// CreditNote nota de crédito (codDoc 04).
type CreditNote struct {
	ElectronicDocument
	Lines    []DocumentLine
	Modified ModifiedDocument
	Reason   string
}

// DebitReason motivo y valor de una nota de débito.
type DebitReason struct {
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
}

// DebitNote nota de débito (codDoc 05).
type DebitNote struct {
	ElectronicDocument
	Modified          ModifiedDocument
	Reasons           []DebitReason
	TaxPercentageCode string
	TaxRate           decimal.Decimal
}

// RetentionTax impuesto retenido sobre un documento de sustento.
type RetentionTax struct {
	TaxCode          string          `json:"tax_code"`       // Tabla 19: 1 renta, 2 IVA, 6 ISD
	RetentionCode    string          `json:"retention_code"` // código del porcentaje de retención
	TaxBase          decimal.Decimal `json:"tax_base"`
	Percentage       decimal.Decimal `json:"percentage"`
	SupportDocType   DocumentType    `json:"support_doc_type"`
	SupportDocNumber string          `json:"support_doc_number"` // sin guiones, 15 dígitos
	SupportDocDate   time.Time       `json:"support_doc_date"`
}

// Amount valorRetenido.
func (t RetentionTax) Amount() decimal.Decimal {
	return t.TaxBase.Mul(t.Percentage).Div(decimal.NewFromInt(100)).Round(2)
}

// Retention comprobante de retención (codDoc 07).
type Retention struct {
	ElectronicDocument
	FiscalPeriod string // mm/aaaa
	Taxes        []RetentionTax
}

// ── Totales ──────────────────────────────────────────────────────────────────

// TaxSummaries agrupa las líneas por codigoPorcentaje en orden de aparición.
func TaxSummaries(lines []DocumentLine) []TaxSummary {
	var out []TaxSummary
	idx := map[string]int{}
	for _, l := range lines {
		i, ok := idx[l.TaxPercentageCode]
		if !ok {
			i = len(out)
			idx[l.TaxPercentageCode] = i
			out = append(out, TaxSummary{PercentageCode: l.TaxPercentageCode, Rate: l.TaxRate})
		}
		out[i].Base = out[i].Base.Add(l.Subtotal())
		out[i].Value = out[i].Value.Add(l.Tax())
	}
	return out
}

// LineDiscount suma de descuentos de las líneas.
func LineDiscount(lines []DocumentLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Discount)
	}
	return total
}

func linesTotals(lines []DocumentLine) (subtotal, tax decimal.Decimal) {
	subtotal, tax = decimal.Zero, decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
		tax = tax.Add(l.Tax())
	}
	return subtotal, tax
}

// RecalculateTotals actualiza Subtotal, TaxTotal y Total de la cabecera.
func (i *Invoice) RecalculateTotals() {
	i.Subtotal, i.TaxTotal = linesTotals(i.Lines)
	i.Total = i.Subtotal.Add(i.TaxTotal)
}

func (c *CreditNote) RecalculateTotals() {
	c.Subtotal, c.TaxTotal = linesTotals(c.Lines)
	c.Total = c.Subtotal.Add(c.TaxTotal)
}

func (d *DebitNote) RecalculateTotals() {
	sub := decimal.Zero
	for _, r := range d.Reasons {
		sub = sub.Add(r.Amount)
	}
	d.Subtotal = sub.Round(2)
	d.TaxTotal = d.Subtotal.Mul(d.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	d.Total = d.Subtotal.Add(d.TaxTotal)
}

// RecalculateTotals en la retención Total es el valor retenido; no hay IVA propio.
func (r *Retention) RecalculateTotals() {
	total := decimal.Zero
	base := decimal.Zero
	for _, t := range r.Taxes {
		total = total.Add(t.Amount())
		base = base.Add(t.TaxBase)
	}
	r.Subtotal = base
	r.TaxTotal = decimal.Zero
	r.Total = total
}
