// Package sri implementa la generación de XML (esquema offline), el cliente SOAP de los web
// services de recepción/autorización y un cliente local para desarrollo.
package sri

import (
	"context"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// Versiones del esquema XSD por comprobante.
const (
	VersionFactura     = "1.1.0"
	VersionNotaCredito = "1.1.0"
	VersionNotaDebito  = "1.0.0"
	VersionRetencion   = "1.0.0"

	// ComprobanteID id del nodo raíz; la firma lo referencia como "#comprobante".
	ComprobanteID = "comprobante"

	currency   = "DOLAR"
	dateLayout = "02/01/2006"
)

// XMLBuilderService construye el XML del comprobante sin firma.
type XMLBuilderService struct {
	keys *domainsri.AccessKeyGenerator
}

// NewXMLBuilderService crea el servicio. Si keys es nil usa el generador con código aleatorio.
func NewXMLBuilderService(keys *domainsri.AccessKeyGenerator) *XMLBuilderService {
	if keys == nil {
		keys = domainsri.NewAccessKeyGenerator()
	}
	return &XMLBuilderService{keys: keys}
}

var _ billing.XMLDocumentBuilder = (*XMLBuilderService)(nil)

// Build genera el XML y devuelve la clave de acceso usada. Si el comprobante ya tiene clave
// se reutiliza sin cambios.
func (s *XMLBuilderService) Build(ctx context.Context, doc entity.SRIDocument, cfg *entity.SRIConfiguration, est *entity.Establishment, point *entity.EmissionPoint) ([]byte, string, error) {
	if doc == nil || cfg == nil || est == nil || point == nil {
		return nil, "", fmt.Errorf("%w: faltan comprobante, configuración, establecimiento o punto de emisión", domain.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	accessKey, err := s.accessKey(doc, cfg, est, point)
	if err != nil {
		return nil, "", err
	}

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	var root *etree.Element
	switch d := doc.(type) {
	case *entity.Invoice:
		root = x.CreateElement("factura")
		root.CreateAttr("id", ComprobanteID)
		root.CreateAttr("version", VersionFactura)
		writeInfoTributaria(root, d.Base(), cfg, est, point, accessKey)
		writeInfoFactura(root, d, cfg, est)
		writeDetalles(root, d.Lines, "codigoPrincipal", "codigoAuxiliar")
	case *entity.CreditNote:
		root = x.CreateElement("notaCredito")
		root.CreateAttr("id", ComprobanteID)
		root.CreateAttr("version", VersionNotaCredito)
		writeInfoTributaria(root, d.Base(), cfg, est, point, accessKey)
		writeInfoNotaCredito(root, d, cfg, est)
		writeDetalles(root, d.Lines, "codigoInterno", "codigoAdicional")
	case *entity.DebitNote:
		root = x.CreateElement("notaDebito")
		root.CreateAttr("id", ComprobanteID)
		root.CreateAttr("version", VersionNotaDebito)
		writeInfoTributaria(root, d.Base(), cfg, est, point, accessKey)
		writeInfoNotaDebito(root, d, cfg, est)
		motivos := root.CreateElement("motivos")
		for _, r := range d.Reasons {
			m := motivos.CreateElement("motivo")
			addText(m, "razon", r.Reason)
			addText(m, "valor", money(r.Amount))
		}
	case *entity.Retention:
		root = x.CreateElement("comprobanteRetencion")
		root.CreateAttr("id", ComprobanteID)
		root.CreateAttr("version", VersionRetencion)
		writeInfoTributaria(root, d.Base(), cfg, est, point, accessKey)
		writeInfoRetencion(root, d, cfg, est)
	default:
		return nil, "", fmt.Errorf("%w: tipo de comprobante %T no soportado", domain.ErrInvalidArgument, doc)
	}
	writeInfoAdicional(root, doc.Base())

	out, err := x.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("sri: serializar XML: %w", err)
	}
	return out, accessKey, nil
}

func (s *XMLBuilderService) accessKey(doc entity.SRIDocument, cfg *entity.SRIConfiguration, est *entity.Establishment, point *entity.EmissionPoint) (string, error) {
	in := doc.AccessKeyInputs()
	if in.ExistingKey != "" {
		if _, err := domainsri.FromString(in.ExistingKey); err != nil {
			return "", err
		}
		return in.ExistingKey, nil
	}
	key, err := s.keys.Generate(domainsri.AccessKeyParams{
		IssueDate:         in.IssueDate,
		DocumentType:      string(in.DocumentType),
		RUC:               cfg.RUC,
		Environment:       string(in.Environment),
		EstablishmentCode: est.Code,
		EmissionPointCode: point.Code,
		Sequential:        in.Sequential,
	})
	if err != nil {
		return "", err
	}
	return key.Value(), nil
}

// ── Secciones comunes ────────────────────────────────────────────────────────

func writeInfoTributaria(root *etree.Element, base *entity.ElectronicDocument, cfg *entity.SRIConfiguration, est *entity.Establishment, point *entity.EmissionPoint, accessKey string) {
	it := root.CreateElement("infoTributaria")
	addText(it, "ambiente", string(base.Environment))
	addText(it, "tipoEmision", pkgsri.EmissionTypeNormal)
	addText(it, "razonSocial", cfg.LegalName)
	if cfg.TradeName != "" {
		addText(it, "nombreComercial", cfg.TradeName)
	}
	addText(it, "ruc", cfg.RUC)
	addText(it, "claveAcceso", accessKey)
	addText(it, "codDoc", string(base.Type))
	addText(it, "estab", est.Code)
	addText(it, "ptoEmi", point.Code)
	addText(it, "secuencial", fmt.Sprintf("%09d", base.Sequential))
	addText(it, "dirMatriz", cfg.MainAddress)
}

// writeIssuerInfo fechaEmision, dirEstablecimiento, contribuyenteEspecial y obligadoContabilidad.
func writeIssuerInfo(info *etree.Element, base *entity.ElectronicDocument, cfg *entity.SRIConfiguration, est *entity.Establishment) {
	addText(info, "fechaEmision", base.IssueDate.Format(dateLayout))
	if est.Address != "" {
		addText(info, "dirEstablecimiento", est.Address)
	}
	if cfg.SpecialTaxpayer != "" {
		addText(info, "contribuyenteEspecial", cfg.SpecialTaxpayer)
	}
	addText(info, "obligadoContabilidad", yesNo(cfg.RequiredAccounting))
}

func writeBuyer(info *etree.Element, base *entity.ElectronicDocument) {
	addText(info, "tipoIdentificacionComprador", base.BuyerIDType)
	addText(info, "razonSocialComprador", base.BuyerName)
	addText(info, "identificacionComprador", base.BuyerID)
}

func writeInfoAdicional(root *etree.Element, base *entity.ElectronicDocument) {
	if base.BuyerEmail == "" && base.BuyerAddress == "" {
		return
	}
	ia := root.CreateElement("infoAdicional")
	if base.BuyerAddress != "" {
		campo := addText(ia, "campoAdicional", base.BuyerAddress)
		campo.CreateAttr("nombre", "Dirección")
	}
	if base.BuyerEmail != "" {
		campo := addText(ia, "campoAdicional", base.BuyerEmail)
		campo.CreateAttr("nombre", "Email")
	}
}

func writeTotalConImpuestos(info *etree.Element, lines []entity.DocumentLine) {
	tci := info.CreateElement("totalConImpuestos")
	for _, t := range entity.TaxSummaries(lines) {
		ti := tci.CreateElement("totalImpuesto")
		addText(ti, "codigo", pkgsri.TaxCodeIVA)
		addText(ti, "codigoPorcentaje", t.PercentageCode)
		addText(ti, "baseImponible", money(t.Base))
		addText(ti, "valor", money(t.Value))
	}
}

func writeDetalles(root *etree.Element, lines []entity.DocumentLine, codeTag, auxTag string) {
	detalles := root.CreateElement("detalles")
	for _, l := range lines {
		d := detalles.CreateElement("detalle")
		addText(d, codeTag, l.Code)
		if l.AuxiliaryCode != "" {
			addText(d, auxTag, l.AuxiliaryCode)
		}
		addText(d, "descripcion", l.Description)
		addText(d, "cantidad", l.Quantity.StringFixed(6))
		addText(d, "precioUnitario", l.UnitPrice.StringFixed(6))
		addText(d, "descuento", money(l.Discount))
		addText(d, "precioTotalSinImpuesto", money(l.Subtotal()))
		imp := d.CreateElement("impuestos").CreateElement("impuesto")
		addText(imp, "codigo", pkgsri.TaxCodeIVA)
		addText(imp, "codigoPorcentaje", l.TaxPercentageCode)
		addText(imp, "tarifa", l.TaxRate.StringFixed(2))
		addText(imp, "baseImponible", money(l.Subtotal()))
		addText(imp, "valor", money(l.Tax()))
	}
}

func writeModified(info *etree.Element, m entity.ModifiedDocument) {
	addText(info, "codDocModificado", string(m.Type))
	addText(info, "numDocModificado", m.Number)
	addText(info, "fechaEmisionDocSustento", m.IssueDate.Format(dateLayout))
}

// ── Por tipo de comprobante ──────────────────────────────────────────────────

func writeInfoFactura(root *etree.Element, inv *entity.Invoice, cfg *entity.SRIConfiguration, est *entity.Establishment) {
	info := root.CreateElement("infoFactura")
	writeIssuerInfo(info, inv.Base(), cfg, est)
	writeBuyer(info, inv.Base())
	if inv.BuyerAddress != "" {
		addText(info, "direccionComprador", inv.BuyerAddress)
	}
	addText(info, "totalSinImpuestos", money(inv.Subtotal))
	addText(info, "totalDescuento", money(entity.LineDiscount(inv.Lines)))
	writeTotalConImpuestos(info, inv.Lines)
	addText(info, "propina", money(decimal.Zero))
	addText(info, "importeTotal", money(inv.Total))
	addText(info, "moneda", currency)

	pagos := info.CreateElement("pagos")
	for _, p := range inv.Payments {
		pago := pagos.CreateElement("pago")
		addText(pago, "formaPago", p.Method)
		addText(pago, "total", money(p.Amount))
		if p.Term > 0 {
			addText(pago, "plazo", fmt.Sprintf("%d", p.Term))
			unit := p.Unit
			if unit == "" {
				unit = "dias"
			}
			addText(pago, "unidadTiempo", unit)
		}
	}
}

func writeInfoNotaCredito(root *etree.Element, cn *entity.CreditNote, cfg *entity.SRIConfiguration, est *entity.Establishment) {
	info := root.CreateElement("infoNotaCredito")
	addText(info, "fechaEmision", cn.IssueDate.Format(dateLayout))
	if est.Address != "" {
		addText(info, "dirEstablecimiento", est.Address)
	}
	writeBuyer(info, cn.Base())
	if cfg.SpecialTaxpayer != "" {
		addText(info, "contribuyenteEspecial", cfg.SpecialTaxpayer)
	}
	addText(info, "obligadoContabilidad", yesNo(cfg.RequiredAccounting))
	writeModified(info, cn.Modified)
	addText(info, "totalSinImpuestos", money(cn.Subtotal))
	addText(info, "valorModificacion", money(cn.Total))
	addText(info, "moneda", currency)
	writeTotalConImpuestos(info, cn.Lines)
	addText(info, "motivo", cn.Reason)
}

func writeInfoNotaDebito(root *etree.Element, dn *entity.DebitNote, cfg *entity.SRIConfiguration, est *entity.Establishment) {
	info := root.CreateElement("infoNotaDebito")
	addText(info, "fechaEmision", dn.IssueDate.Format(dateLayout))
	if est.Address != "" {
		addText(info, "dirEstablecimiento", est.Address)
	}
	writeBuyer(info, dn.Base())
	if cfg.SpecialTaxpayer != "" {
		addText(info, "contribuyenteEspecial", cfg.SpecialTaxpayer)
	}
	addText(info, "obligadoContabilidad", yesNo(cfg.RequiredAccounting))
	writeModified(info, dn.Modified)
	addText(info, "totalSinImpuestos", money(dn.Subtotal))

	imp := info.CreateElement("impuestos").CreateElement("impuesto")
	addText(imp, "codigo", pkgsri.TaxCodeIVA)
	addText(imp, "codigoPorcentaje", dn.TaxPercentageCode)
	addText(imp, "tarifa", dn.TaxRate.StringFixed(2))
	addText(imp, "baseImponible", money(dn.Subtotal))
	addText(imp, "valor", money(dn.TaxTotal))

	addText(info, "valorTotal", money(dn.Total))
	pago := info.CreateElement("pagos").CreateElement("pago")
	addText(pago, "formaPago", pkgsri.PaymentSinSistemaFinanciero)
	addText(pago, "total", money(dn.Total))
}

func writeInfoRetencion(root *etree.Element, ret *entity.Retention, cfg *entity.SRIConfiguration, est *entity.Establishment) {
	info := root.CreateElement("infoCompRetencion")
	writeIssuerInfo(info, ret.Base(), cfg, est)
	addText(info, "tipoIdentificacionSujetoRetenido", ret.BuyerIDType)
	addText(info, "razonSocialSujetoRetenido", ret.BuyerName)
	addText(info, "identificacionSujetoRetenido", ret.BuyerID)
	addText(info, "periodoFiscal", ret.FiscalPeriod)

	impuestos := root.CreateElement("impuestos")
	for _, t := range ret.Taxes {
		imp := impuestos.CreateElement("impuesto")
		addText(imp, "codigo", t.TaxCode)
		addText(imp, "codigoRetencion", t.RetentionCode)
		addText(imp, "baseImponible", money(t.TaxBase))
		addText(imp, "porcentajeRetener", t.Percentage.StringFixed(2))
		addText(imp, "valorRetenido", money(t.Amount()))
		addText(imp, "codDocSustento", string(t.SupportDocType))
		addText(imp, "numDocSustento", t.SupportDocNumber)
		addText(imp, "fechaEmisionDocSustento", t.SupportDocDate.Format(dateLayout))
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// addText crea el hijo con el texto normalizado a NFC.
func addText(parent *etree.Element, tag, value string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(normalize(value))
	return el
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}
