package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
)

const accessKey = "1501202401179214673900110010010000000011234567810"

func issuer() (*entity.SRIConfiguration, *entity.Establishment, *entity.EmissionPoint) {
	cfg := &entity.SRIConfiguration{
		TenantID:    "tenant-a",
		RUC:         "1792146739001",
		LegalName:   "Comercial Andina S.A.",
		MainAddress: "Av. Amazonas N24-03, Quito",
		Environment: entity.EnvironmentTest,
	}
	est := &entity.Establishment{ID: "est-1", TenantID: "tenant-a", Code: "001"}
	point := &entity.EmissionPoint{ID: "pt-1", TenantID: "tenant-a", EstablishmentID: "est-1", Code: "001"}
	return cfg, est, point
}

func authorizedBase(t entity.DocumentType) entity.ElectronicDocument {
	at := time.Date(2024, 1, 15, 10, 20, 30, 0, time.UTC)
	return entity.ElectronicDocument{
		ID:                  "doc-1",
		TenantID:            "tenant-a",
		Type:                t,
		Sequential:          1,
		IssueDate:           time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:              entity.StatusAuthorized,
		Environment:         entity.EnvironmentTest,
		AccessKey:           accessKey,
		AuthorizationNumber: accessKey,
		AuthorizedAt:        &at,
		BuyerIDType:         "05",
		BuyerID:             "1710034065",
		BuyerName:           "Juan Pérez",
		BuyerEmail:          "juan@example.com",
	}
}

func TestRender_Factura(t *testing.T) {
	cfg, est, point := issuer()
	inv := &entity.Invoice{
		ElectronicDocument: authorizedBase(entity.DocumentTypeInvoice),
		Lines: []entity.DocumentLine{
			{Code: "P001", Description: "Servicio", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100), TaxPercentageCode: "4", TaxRate: decimal.NewFromInt(15)},
			{Code: "P002", Description: "Libro", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(5), TaxPercentageCode: "0", TaxRate: decimal.Zero},
		},
	}
	inv.RecalculateTotals()

	out, err := pdf.NewRideGenerator().Render(context.Background(), inv, cfg, est, point)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "debe ser un PDF")
}

func TestRender_NotasYRetencion(t *testing.T) {
	cfg, est, point := issuer()
	modified := entity.ModifiedDocument{Type: "01", Number: "001-001-000000001", IssueDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)}

	cn := &entity.CreditNote{
		ElectronicDocument: authorizedBase(entity.DocumentTypeCreditNote),
		Lines:              []entity.DocumentLine{{Code: "P001", Description: "Devolución", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10), TaxPercentageCode: "4", TaxRate: decimal.NewFromInt(15)}},
		Modified:           modified,
		Reason:             "Devolución",
	}
	cn.RecalculateTotals()

	dn := &entity.DebitNote{
		ElectronicDocument: authorizedBase(entity.DocumentTypeDebitNote),
		Modified:           modified,
		Reasons:            []entity.DebitReason{{Reason: "Interés por mora", Amount: decimal.NewFromInt(10)}},
		TaxPercentageCode:  "4",
		TaxRate:            decimal.NewFromInt(15),
	}
	dn.RecalculateTotals()

	ret := &entity.Retention{
		ElectronicDocument: authorizedBase(entity.DocumentTypeRetention),
		FiscalPeriod:       "01/2024",
		Taxes: []entity.RetentionTax{{
			TaxCode: "1", RetentionCode: "312", TaxBase: decimal.NewFromInt(200), Percentage: decimal.RequireFromString("1.75"),
			SupportDocType: "01", SupportDocNumber: "001001000000123", SupportDocDate: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		}},
	}
	ret.RecalculateTotals()

	for _, doc := range []entity.SRIDocument{cn, dn, ret} {
		out, err := pdf.NewRideGenerator().Render(context.Background(), doc, cfg, est, point)
		require.NoError(t, err, "tipo %s", doc.Base().Type)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	}
}

func TestRender_SinClaveDeAcceso(t *testing.T) {
	cfg, est, point := issuer()
	inv := &entity.Invoice{ElectronicDocument: authorizedBase(entity.DocumentTypeInvoice)}
	inv.AccessKey = ""

	_, err := pdf.NewRideGenerator().Render(context.Background(), inv, cfg, est, point)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}
