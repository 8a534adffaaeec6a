package sri_test

import (
	"context"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
)

const expectedKey = "1501202401179214673900110010010000000011234567810"

func fixedKeys() *domainsri.AccessKeyGenerator {
	return domainsri.NewAccessKeyGeneratorWithFiller(func() (string, error) { return "12345678", nil })
}

func issuer() (*entity.SRIConfiguration, *entity.Establishment, *entity.EmissionPoint) {
	cfg := &entity.SRIConfiguration{
		TenantID:           "tenant-a",
		RUC:                "1792146739001",
		LegalName:          "Comercial Andina S.A.",
		TradeName:          "Andina",
		MainAddress:        "Av. Amazonas N24-03, Quito",
		Environment:        entity.EnvironmentTest,
		RequiredAccounting: true,
	}
	est := &entity.Establishment{ID: "est-1", TenantID: "tenant-a", Code: "001", Address: "Av. Amazonas N24-03"}
	point := &entity.EmissionPoint{ID: "pt-1", TenantID: "tenant-a", EstablishmentID: "est-1", Code: "001", IsActive: true}
	return cfg, est, point
}

func baseDocument(t entity.DocumentType) entity.ElectronicDocument {
	return entity.ElectronicDocument{
		ID:              "doc-1",
		TenantID:        "tenant-a",
		Type:            t,
		EmissionPointID: "pt-1",
		Sequential:      1,
		IssueDate:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:          entity.StatusDraft,
		Environment:     entity.EnvironmentTest,
		BuyerIDType:     "05",
		BuyerID:         "1710034065",
		BuyerName:       "José Pérez",
		BuyerEmail:      "jose@example.com",
	}
}

func parse(t *testing.T, b []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(b))
	return doc
}

func text(t *testing.T, doc *etree.Document, path string) string {
	t.Helper()
	el := doc.FindElement(path)
	require.NotNil(t, el, "no existe %s", path)
	return el.Text()
}

// ──────────────────────────────────────────────────────────────────────────────
// Factura
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_Factura(t *testing.T) {
	cfg, est, point := issuer()
	inv := &entity.Invoice{
		ElectronicDocument: baseDocument(entity.DocumentTypeInvoice),
		Lines: []entity.DocumentLine{{
			Code:              "P001",
			Description:       "Servicio",
			Quantity:          decimal.NewFromInt(1),
			UnitPrice:         decimal.NewFromInt(100),
			TaxPercentageCode: "4",
			TaxRate:           decimal.NewFromInt(15),
		}},
		Payments: []entity.Payment{{Method: "01", Amount: decimal.NewFromInt(115)}},
	}
	inv.BuyerName = "Jose\u0301 Pe\u0301rez"
	inv.RecalculateTotals()

	b := sri.NewXMLBuilderService(fixedKeys())
	out, key, err := b.Build(context.Background(), inv, cfg, est, point)
	require.NoError(t, err)
	assert.Equal(t, expectedKey, key)

	doc := parse(t, out)
	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "factura", root.Tag)
	assert.Equal(t, "comprobante", root.SelectAttrValue("id", ""))
	assert.Equal(t, "1.1.0", root.SelectAttrValue("version", ""))

	assert.Equal(t, expectedKey, text(t, doc, "factura/infoTributaria/claveAcceso"))
	assert.Equal(t, "000000001", text(t, doc, "factura/infoTributaria/secuencial"))
	assert.Equal(t, "01", text(t, doc, "factura/infoTributaria/codDoc"))
	assert.Equal(t, "15/01/2024", text(t, doc, "factura/infoFactura/fechaEmision"))
	assert.Equal(t, "SI", text(t, doc, "factura/infoFactura/obligadoContabilidad"))
	assert.Equal(t, "100.00", text(t, doc, "factura/infoFactura/totalSinImpuestos"))
	assert.Equal(t, "15.00", text(t, doc, "factura/infoFactura/totalConImpuestos/totalImpuesto/valor"))
	assert.Equal(t, "115.00", text(t, doc, "factura/infoFactura/importeTotal"))
	assert.Equal(t, "DOLAR", text(t, doc, "factura/infoFactura/moneda"))
	assert.Equal(t, "115.00", text(t, doc, "factura/infoFactura/pagos/pago/total"))
	assert.Equal(t, "P001", text(t, doc, "factura/detalles/detalle/codigoPrincipal"))
	assert.Equal(t, "15.00", text(t, doc, "factura/detalles/detalle/impuestos/impuesto/valor"))
	assert.Equal(t, "jose@example.com", text(t, doc, "factura/infoAdicional/campoAdicional[@nombre='Email']"))

	// Texto libre normalizado a NFC: "e" + acento combinado pasa a "é".
	assert.Equal(t, "Jos\u00e9 P\u00e9rez", text(t, doc, "factura/infoFactura/razonSocialComprador"))
}

func TestBuild_ReutilizaClaveExistente(t *testing.T) {
	cfg, est, point := issuer()
	inv := &entity.Invoice{ElectronicDocument: baseDocument(entity.DocumentTypeInvoice)}
	inv.AccessKey = expectedKey

	b := sri.NewXMLBuilderService(domainsri.NewAccessKeyGeneratorWithFiller(func() (string, error) {
		return "87654321", nil
	}))
	_, key, err := b.Build(context.Background(), inv, cfg, est, point)
	require.NoError(t, err)
	assert.Equal(t, expectedKey, key)
}

func TestBuild_ClaveExistenteCorrupta(t *testing.T) {
	cfg, est, point := issuer()
	inv := &entity.Invoice{ElectronicDocument: baseDocument(entity.DocumentTypeInvoice)}
	inv.AccessKey = "1501202401179214673900110010010000000011234567811"

	_, _, err := sri.NewXMLBuilderService(fixedKeys()).Build(context.Background(), inv, cfg, est, point)
	assert.ErrorIs(t, err, domain.ErrInvalidAccessKey)
}

func TestBuild_ArgumentosFaltantes(t *testing.T) {
	cfg, est, _ := issuer()
	inv := &entity.Invoice{ElectronicDocument: baseDocument(entity.DocumentTypeInvoice)}

	_, _, err := sri.NewXMLBuilderService(fixedKeys()).Build(context.Background(), inv, cfg, est, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// ──────────────────────────────────────────────────────────────────────────────
// Notas y retención
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_NotaCredito(t *testing.T) {
	cfg, est, point := issuer()
	cn := &entity.CreditNote{
		ElectronicDocument: baseDocument(entity.DocumentTypeCreditNote),
		Lines: []entity.DocumentLine{{
			Code: "P001", Description: "Devolución", Quantity: decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(10), TaxPercentageCode: "4", TaxRate: decimal.NewFromInt(15),
		}},
		Modified: entity.ModifiedDocument{Type: "01", Number: "001-001-000000001", IssueDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		Reason:   "Devolución de mercadería",
	}
	cn.RecalculateTotals()

	out, key, err := sri.NewXMLBuilderService(fixedKeys()).Build(context.Background(), cn, cfg, est, point)
	require.NoError(t, err)
	assert.Equal(t, "04", key[8:10])

	doc := parse(t, out)
	assert.Equal(t, "notaCredito", doc.Root().Tag)
	assert.Equal(t, "001-001-000000001", text(t, doc, "notaCredito/infoNotaCredito/numDocModificado"))
	assert.Equal(t, "10/01/2024", text(t, doc, "notaCredito/infoNotaCredito/fechaEmisionDocSustento"))
	assert.Equal(t, "23.00", text(t, doc, "notaCredito/infoNotaCredito/valorModificacion"))
	assert.Equal(t, "Devolución de mercadería", text(t, doc, "notaCredito/infoNotaCredito/motivo"))
	assert.Equal(t, "P001", text(t, doc, "notaCredito/detalles/detalle/codigoInterno"))
}

func TestBuild_NotaDebito(t *testing.T) {
	cfg, est, point := issuer()
	dn := &entity.DebitNote{
		ElectronicDocument: baseDocument(entity.DocumentTypeDebitNote),
		Modified:           entity.ModifiedDocument{Type: "01", Number: "001-001-000000001", IssueDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		Reasons:            []entity.DebitReason{{Reason: "Interés por mora", Amount: decimal.NewFromInt(10)}},
		TaxPercentageCode:  "4",
		TaxRate:            decimal.NewFromInt(15),
	}
	dn.RecalculateTotals()

	out, _, err := sri.NewXMLBuilderService(fixedKeys()).Build(context.Background(), dn, cfg, est, point)
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, "1.0.0", doc.Root().SelectAttrValue("version", ""))
	assert.Equal(t, "11.50", text(t, doc, "notaDebito/infoNotaDebito/valorTotal"))
	assert.Equal(t, "1.50", text(t, doc, "notaDebito/infoNotaDebito/impuestos/impuesto/valor"))
	assert.Equal(t, "Interés por mora", text(t, doc, "notaDebito/motivos/motivo/razon"))
}

func TestBuild_Retencion(t *testing.T) {
	cfg, est, point := issuer()
	base := baseDocument(entity.DocumentTypeRetention)
	base.BuyerIDType = "04"
	base.BuyerID = "1792146739001"
	ret := &entity.Retention{
		ElectronicDocument: base,
		FiscalPeriod:       "01/2024",
		Taxes: []entity.RetentionTax{{
			TaxCode:          "1",
			RetentionCode:    "312",
			TaxBase:          decimal.NewFromInt(200),
			Percentage:       decimal.RequireFromString("1.75"),
			SupportDocType:   "01",
			SupportDocNumber: "001001000000123",
			SupportDocDate:   time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		}},
	}
	ret.RecalculateTotals()

	out, _, err := sri.NewXMLBuilderService(fixedKeys()).Build(context.Background(), ret, cfg, est, point)
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, "comprobanteRetencion", doc.Root().Tag)
	assert.Equal(t, "01/2024", text(t, doc, "comprobanteRetencion/infoCompRetencion/periodoFiscal"))
	assert.Equal(t, "3.50", text(t, doc, "comprobanteRetencion/impuestos/impuesto/valorRetenido"))
	assert.Equal(t, "001001000000123", text(t, doc, "comprobanteRetencion/impuestos/impuesto/numDocSustento"))
}
