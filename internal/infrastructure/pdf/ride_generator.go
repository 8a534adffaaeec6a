// Package pdf implementa el RIDE (Representación Impresa del Documento Electrónico)
// de los comprobantes autorizados por el SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social, matriz,   │  RUC, tipo y N°,          │
//	│  establecimiento, contabilidad   │  autorización, ambiente,  │
//	│                                  │  código de barras (clave) │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPRADOR / SUJETO RETENIDO + documento modificado          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DETALLE: líneas, motivos o impuestos retenidos              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  INFORMACIÓN ADICIONAL            │  TOTALES                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// RideGenerator implementa billing.RideRenderer usando Maroto v2.
type RideGenerator struct{}

// NewRideGenerator construye el generador.
func NewRideGenerator() *RideGenerator { return &RideGenerator{} }

var _ billing.RideRenderer = (*RideGenerator)(nil)

// Render genera el PDF y devuelve sus bytes.
func (g *RideGenerator) Render(
	ctx context.Context,
	doc entity.SRIDocument,
	cfg *entity.SRIConfiguration,
	est *entity.Establishment,
	point *entity.EmissionPoint,
) ([]byte, error) {
	if doc == nil || cfg == nil || est == nil || point == nil {
		return nil, fmt.Errorf("%w: faltan datos para el RIDE", domain.ErrInvalidArgument)
	}
	base := doc.Base()
	if base.AccessKey == "" {
		return nil, fmt.Errorf("%w: el comprobante no tiene clave de acceso", domain.ErrPreconditionFailed)
	}

	mcfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("RIDE "+documentName(base.Type), true).
		WithAuthor(cfg.LegalName, true).
		Build()

	m := maroto.New(mcfg)

	m.AddRows(headerRows(base, cfg, est, point)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(buyerRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(detailRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(footerRows(doc)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar RIDE: %w", err)
	}
	return pdf.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRows: emisor (izq) y datos tributarios del comprobante con la clave en barras (der).
func headerRows(base *entity.ElectronicDocument, cfg *entity.SRIConfiguration, est *entity.Establishment, point *entity.EmissionPoint) []core.Row {
	small := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 7.5, Top: top, Color: colorGray})
	}

	authDate := "-"
	if base.AuthorizedAt != nil {
		authDate = base.AuthorizedAt.Format("02/01/2006 15:04:05")
	}
	authNumber := nonEmpty(base.AuthorizationNumber, base.AccessKey)
	special := "-"
	if cfg.SpecialTaxpayer != "" {
		special = cfg.SpecialTaxpayer
	}

	issuer := col.New(6).Add(
		text.New(cfg.LegalName, props.Text{Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1}),
		small(nonEmpty(cfg.TradeName, " "), 8),
		small("Dir. Matriz: "+cfg.MainAddress, 13),
		small("Dir. Establecimiento: "+nonEmpty(est.Address, cfg.MainAddress), 17),
		small("Contribuyente Especial Nro: "+special, 21),
		small("OBLIGADO A LLEVAR CONTABILIDAD: "+yesNo(cfg.RequiredAccounting), 25),
	)
	fiscal := col.New(6).Add(
		text.New("R.U.C.: "+cfg.RUC, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 1}),
		text.New(documentName(base.Type), props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right, Color: colorPrimary, Top: 6}),
		text.New("No. "+entity.DocumentNumber(est.Code, point.Code, base.Sequential), props.Text{Size: 9, Align: align.Right, Top: 12}),
		text.New("NÚMERO DE AUTORIZACIÓN", props.Text{Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 17}),
		text.New(authNumber, props.Text{Size: 6.5, Align: align.Right, Top: 21}),
		text.New("FECHA Y HORA DE AUTORIZACIÓN: "+authDate, props.Text{Size: 7, Align: align.Right, Top: 25}),
	)

	return []core.Row{
		row.New(30).Add(issuer, fiscal),
		row.New(6).Add(
			col.New(6).Add(small("AMBIENTE: "+pkgsri.EnvironmentNames[string(base.Environment)], 1)),
			col.New(6).Add(text.New("EMISIÓN: NORMAL", props.Text{Size: 7.5, Align: align.Right, Top: 1, Color: colorGray})),
		),
		row.New(4).Add(col.New(12).Add(
			text.New("CLAVE DE ACCESO", props.Text{Style: fontstyle.Bold, Size: 7, Align: align.Center}),
		)),
		row.New(14).Add(col.New(12).Add(code.NewBar(base.AccessKey, props.Barcode{Percent: 90, Center: true}))),
		row.New(5).Add(col.New(12).Add(
			text.New(base.AccessKey, props.Text{Size: 7, Align: align.Center, Top: 1}),
		)),
	}
}

// buyerRows: comprador (o sujeto retenido) y, en notas, el documento modificado.
func buyerRows(doc entity.SRIDocument) []core.Row {
	base := doc.Base()
	nameLabel := "Razón Social / Nombres y Apellidos: "
	if base.Type == entity.DocumentTypeRetention {
		nameLabel = "Sujeto Retenido: "
	}
	rows := []core.Row{
		row.New(5).Add(
			col.New(8).Add(text.New(nameLabel+base.BuyerName, props.Text{Size: 8, Top: 1})),
			col.New(4).Add(text.New("Identificación: "+base.BuyerID, props.Text{Size: 8, Top: 1, Align: align.Right})),
		),
		row.New(5).Add(
			col.New(8).Add(text.New("Fecha Emisión: "+base.IssueDate.Format("02/01/2006"), props.Text{Size: 8, Top: 1})),
			col.New(4).Add(text.New(nonEmpty(base.BuyerAddress, " "), props.Text{Size: 7.5, Top: 1, Align: align.Right, Color: colorGray})),
		),
	}

	var modified *entity.ModifiedDocument
	reason := ""
	switch d := doc.(type) {
	case *entity.CreditNote:
		modified, reason = &d.Modified, d.Reason
	case *entity.DebitNote:
		modified = &d.Modified
	case *entity.Retention:
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Período Fiscal: "+d.FiscalPeriod, props.Text{Size: 8, Top: 1}),
		)))
	}
	if modified != nil {
		rows = append(rows, row.New(5).Add(
			col.New(8).Add(text.New(fmt.Sprintf("Comprobante que se modifica: %s %s",
				documentName(modified.Type), modified.Number), props.Text{Size: 8, Top: 1})),
			col.New(4).Add(text.New("Fecha emisión (sustento): "+modified.IssueDate.Format("02/01/2006"),
				props.Text{Size: 8, Top: 1, Align: align.Right})),
		))
	}
	if reason != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Razón de modificación: "+reason, props.Text{Size: 8, Top: 1}),
		)))
	}
	return rows
}

func detailRows(doc entity.SRIDocument) []core.Row {
	switch d := doc.(type) {
	case *entity.Invoice:
		return lineRows(d.Lines)
	case *entity.CreditNote:
		return lineRows(d.Lines)
	case *entity.DebitNote:
		rows := []core.Row{headerRow([]headerCell{{"Razón de la modificación", 9, align.Left}, {"Valor", 3, align.Right}})}
		for _, r := range d.Reasons {
			rows = append(rows, row.New(6).Add(
				col.New(9).Add(text.New(r.Reason, props.Text{Size: 8, Top: 1, Left: 1})),
				col.New(3).Add(text.New(formatMoney(r.Amount), props.Text{Size: 8, Top: 1, Align: align.Right, Right: 1})),
			))
		}
		return rows
	case *entity.Retention:
		rows := []core.Row{headerRow([]headerCell{
			{"Comprobante", 2, align.Left}, {"Número", 3, align.Left}, {"Fecha", 2, align.Center},
			{"Base Imponible", 2, align.Right}, {"Impuesto", 1, align.Center}, {"%", 1, align.Right}, {"Valor", 1, align.Right},
		})}
		for _, t := range d.Taxes {
			rows = append(rows, row.New(6).Add(
				col.New(2).Add(text.New(documentName(t.SupportDocType), props.Text{Size: 7, Top: 1, Left: 1})),
				col.New(3).Add(text.New(t.SupportDocNumber, props.Text{Size: 7, Top: 1})),
				col.New(2).Add(text.New(t.SupportDocDate.Format("02/01/2006"), props.Text{Size: 7, Top: 1, Align: align.Center})),
				col.New(2).Add(text.New(formatMoney(t.TaxBase), props.Text{Size: 7, Top: 1, Align: align.Right})),
				col.New(1).Add(text.New(retentionTaxName(t.TaxCode), props.Text{Size: 7, Top: 1, Align: align.Center})),
				col.New(1).Add(text.New(t.Percentage.StringFixed(2), props.Text{Size: 7, Top: 1, Align: align.Right})),
				col.New(1).Add(text.New(formatMoney(t.Amount()), props.Text{Size: 7, Top: 1, Align: align.Right, Right: 1})),
			))
		}
		return rows
	}
	return nil
}

type headerCell struct {
	label     string
	size      int
	alignment align.Type
}

func headerRow(cells []headerCell) core.Row {
	cols := make([]core.Col, 0, len(cells))
	for _, c := range cells {
		cols = append(cols, col.New(c.size).Add(text.New(c.label, props.Text{
			Style: fontstyle.Bold, Size: 7.5, Align: c.alignment, Color: colorPrimary, Top: 1, Left: 1, Right: 1,
		})))
	}
	return row.New(6).Add(cols...)
}

// lineRows: tabla de detalle de facturas y notas de crédito.
func lineRows(lines []entity.DocumentLine) []core.Row {
	rows := []core.Row{headerRow([]headerCell{
		{"Cód. Principal", 2, align.Left}, {"Cant.", 1, align.Center}, {"Descripción", 4, align.Left},
		{"P. Unitario", 2, align.Right}, {"Descuento", 1, align.Right}, {"P. Total", 2, align.Right},
	})}
	for _, l := range lines {
		rows = append(rows, row.New(6).Add(
			col.New(2).Add(text.New(l.Code, props.Text{Size: 7.5, Top: 1, Left: 1})),
			col.New(1).Add(text.New(l.Quantity.String(), props.Text{Size: 7.5, Top: 1, Align: align.Center})),
			col.New(4).Add(text.New(l.Description, props.Text{Size: 7.5, Top: 1})),
			col.New(2).Add(text.New(formatMoney(l.UnitPrice), props.Text{Size: 7.5, Top: 1, Align: align.Right})),
			col.New(1).Add(text.New(formatMoney(l.Discount), props.Text{Size: 7.5, Top: 1, Align: align.Right})),
			col.New(2).Add(text.New(formatMoney(l.Subtotal()), props.Text{Size: 7.5, Top: 1, Align: align.Right, Right: 1})),
		))
	}
	return rows
}

// footerRows: información adicional (izq) y totales (der), una fila por concepto.
func footerRows(doc entity.SRIDocument) []core.Row {
	base := doc.Base()
	totals := totalLines(doc)

	info := []string{}
	if base.BuyerEmail != "" {
		info = append(info, "Email: "+base.BuyerEmail)
	}
	if base.BuyerAddress != "" {
		info = append(info, "Dirección: "+base.BuyerAddress)
	}

	rows := []core.Row{row.New(5).Add(
		col.New(6).Add(text.New("INFORMACIÓN ADICIONAL", props.Text{Style: fontstyle.Bold, Size: 7.5, Color: colorPrimary, Top: 1})),
		col.New(6),
	)}
	n := len(totals)
	if len(info) > n {
		n = len(info)
	}
	for i := 0; i < n; i++ {
		left := col.New(6)
		if i < len(info) {
			left.Add(text.New(info[i], props.Text{Size: 7.5, Top: 1, Color: colorGray}))
		}
		right := []core.Col{col.New(4), col.New(2)}
		if i < len(totals) {
			style := fontstyle.Normal
			if i == len(totals)-1 {
				style = fontstyle.Bold
			}
			right = []core.Col{
				col.New(4).Add(text.New(totals[i].label, props.Text{Style: style, Size: 7.5, Top: 1, Align: align.Right, Right: 2})),
				col.New(2).Add(text.New(formatMoney(totals[i].value), props.Text{Style: style, Size: 7.5, Top: 1, Align: align.Right, Right: 1})),
			}
		}
		rows = append(rows, row.New(5).Add(append([]core.Col{left}, right...)...))
	}
	return rows
}

type totalLine struct {
	label string
	value decimal.Decimal
}

// totalLines subtotales por tarifa, descuento, IVA y el total final (último elemento).
func totalLines(doc entity.SRIDocument) []totalLine {
	var lines []entity.DocumentLine
	switch d := doc.(type) {
	case *entity.Invoice:
		lines = d.Lines
	case *entity.CreditNote:
		lines = d.Lines
	case *entity.DebitNote:
		rate := d.TaxRate.String() + "%"
		return []totalLine{
			{"SUBTOTAL " + rate, d.Subtotal},
			{"IVA " + rate, d.TaxTotal},
			{"VALOR TOTAL", d.Total},
		}
	case *entity.Retention:
		return []totalLine{{"TOTAL RETENIDO", d.Total}}
	}

	var out []totalLine
	for _, s := range entity.TaxSummaries(lines) {
		out = append(out, totalLine{"SUBTOTAL " + s.Rate.String() + "%", s.Base})
	}
	out = append(out, totalLine{"TOTAL DESCUENTO", entity.LineDiscount(lines)})
	for _, s := range entity.TaxSummaries(lines) {
		if s.Value.IsPositive() {
			out = append(out, totalLine{"IVA " + s.Rate.String() + "%", s.Value})
		}
	}
	base := doc.Base()
	label := "VALOR TOTAL"
	if base.Type == entity.DocumentTypeCreditNote {
		label = "VALOR MODIFICACIÓN"
	}
	return append(out, totalLine{label, base.Total})
}

// ── helpers ───────────────────────────────────────────────────────────────────

func documentName(t entity.DocumentType) string {
	if name, ok := pkgsri.DocumentTypeNames[string(t)]; ok {
		return name
	}
	return string(t)
}

func retentionTaxName(code string) string {
	switch code {
	case pkgsri.RetentionTaxRenta:
		return "RENTA"
	case pkgsri.RetentionTaxIVA:
		return "IVA"
	case pkgsri.RetentionTaxISD:
		return "ISD"
	}
	return code
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

// formatMoney dos decimales con separador de miles.
// Ej: 25000 → "25,000.00", 1234567.5 → "1,234,567.50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + frac
}
