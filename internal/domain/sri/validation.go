package sri

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// ValidateDocument valida el comprobante antes de generar su XML: comprador, detalle,
// documento modificado y coherencia de totales con las líneas.
// Devuelve un error que envuelve domain.ErrInvalidArgument con todas las fallas encontradas.
func ValidateDocument(doc entity.SRIDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: comprobante nulo", domain.ErrInvalidArgument)
	}
	base := doc.Base()
	var errs []error

	if !base.Type.Valid() {
		errs = append(errs, fmt.Errorf("tipo de comprobante %q no soportado", base.Type))
	}
	if base.IssueDate.IsZero() {
		errs = append(errs, errors.New("la fecha de emisión es obligatoria"))
	}
	if base.Environment != entity.EnvironmentTest && base.Environment != entity.EnvironmentProduction {
		errs = append(errs, fmt.Errorf("ambiente %q inválido", base.Environment))
	}
	errs = append(errs, validateBuyer(base)...)

	switch d := doc.(type) {
	case *entity.Invoice:
		errs = append(errs, validateLines(d.Lines)...)
		if len(d.Payments) > 0 {
			paid := decimal.Zero
			for _, p := range d.Payments {
				paid = paid.Add(p.Amount)
			}
			if !paid.Equal(d.Total) {
				errs = append(errs, fmt.Errorf("la suma de pagos (%s) no coincide con el total (%s)", paid.StringFixed(2), d.Total.StringFixed(2)))
			}
		}
	case *entity.CreditNote:
		errs = append(errs, validateLines(d.Lines)...)
		errs = append(errs, validateModified(d.Modified)...)
		if strings.TrimSpace(d.Reason) == "" {
			errs = append(errs, errors.New("la nota de crédito requiere motivo"))
		}
	case *entity.DebitNote:
		errs = append(errs, validateModified(d.Modified)...)
		if len(d.Reasons) == 0 {
			errs = append(errs, errors.New("la nota de débito debe tener al menos un motivo"))
		}
		for i, r := range d.Reasons {
			if !r.Amount.IsPositive() {
				errs = append(errs, fmt.Errorf("motivo %d: el valor debe ser mayor a cero", i+1))
			}
		}
		if _, ok := pkgsri.IVARates[d.TaxPercentageCode]; !ok {
			errs = append(errs, fmt.Errorf("código de porcentaje IVA %q desconocido", d.TaxPercentageCode))
		}
	case *entity.Retention:
		if !validFiscalPeriod(d.FiscalPeriod) {
			errs = append(errs, fmt.Errorf("periodo fiscal %q debe tener formato mm/aaaa", d.FiscalPeriod))
		}
		if len(d.Taxes) == 0 {
			errs = append(errs, errors.New("la retención debe tener al menos un impuesto"))
		}
		for i, t := range d.Taxes {
			if t.TaxCode != pkgsri.RetentionTaxRenta && t.TaxCode != pkgsri.RetentionTaxIVA && t.TaxCode != pkgsri.RetentionTaxISD {
				errs = append(errs, fmt.Errorf("impuesto %d: código %q no retenible", i+1, t.TaxCode))
			}
			if t.TaxBase.IsNegative() || t.Percentage.IsNegative() {
				errs = append(errs, fmt.Errorf("impuesto %d: base y porcentaje no pueden ser negativos", i+1))
			}
			if len(t.SupportDocNumber) != 15 || !pkgsri.IsNumeric(t.SupportDocNumber) {
				errs = append(errs, fmt.Errorf("impuesto %d: número de sustento debe tener 15 dígitos", i+1))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("tipo de comprobante %T no soportado", doc))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrInvalidArgument}, errs...)...)
	}
	return nil
}

func validateBuyer(d *entity.ElectronicDocument) []error {
	var errs []error
	if !pkgsri.ValidBuyerIDTypes[d.BuyerIDType] {
		errs = append(errs, fmt.Errorf("tipo de identificación del comprador %q inválido", d.BuyerIDType))
		return errs
	}
	switch d.BuyerIDType {
	case pkgsri.IDTypeRUC:
		if err := pkgsri.ValidateRUC(d.BuyerID); err != nil {
			errs = append(errs, fmt.Errorf("comprador: %w", err))
		}
	case pkgsri.IDTypeCedula:
		if len(d.BuyerID) != 10 || !pkgsri.IsNumeric(d.BuyerID) {
			errs = append(errs, errors.New("comprador: la cédula debe tener 10 dígitos"))
		}
	case pkgsri.IDTypeConsumidorFinal:
		if d.BuyerID != pkgsri.ConsumidorFinalID {
			errs = append(errs, fmt.Errorf("comprador: consumidor final debe usar %s", pkgsri.ConsumidorFinalID))
		}
	}
	if strings.TrimSpace(d.BuyerName) == "" {
		errs = append(errs, errors.New("comprador: razón social obligatoria"))
	}
	return errs
}

func validateLines(lines []entity.DocumentLine) []error {
	if len(lines) == 0 {
		return []error{errors.New("el comprobante debe tener al menos un detalle")}
	}
	var errs []error
	for i, l := range lines {
		if strings.TrimSpace(l.Description) == "" {
			errs = append(errs, fmt.Errorf("línea %d: descripción obligatoria", i+1))
		}
		if !l.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: la cantidad debe ser mayor a cero", i+1))
		}
		if l.UnitPrice.IsNegative() || l.Discount.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: precio y descuento no pueden ser negativos", i+1))
		}
		if l.Subtotal().IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: el descuento supera el valor de la línea", i+1))
		}
		rate, ok := pkgsri.IVARates[l.TaxPercentageCode]
		if !ok {
			errs = append(errs, fmt.Errorf("línea %d: código de porcentaje IVA %q desconocido", i+1, l.TaxPercentageCode))
		} else if !l.TaxRate.Equal(decimal.NewFromInt(int64(rate))) {
			errs = append(errs, fmt.Errorf("línea %d: tarifa %s no corresponde al código %s (%d%%)", i+1, l.TaxRate, l.TaxPercentageCode, rate))
		}
	}
	return errs
}

func validateModified(m entity.ModifiedDocument) []error {
	var errs []error
	if m.Type != entity.DocumentTypeInvoice {
		errs = append(errs, fmt.Errorf("documento modificado: tipo %q no soportado", m.Type))
	}
	digits := pkgsri.ExtractDigits(m.Number)
	if len(digits) != 15 || len(m.Number) != 17 {
		errs = append(errs, fmt.Errorf("documento modificado: número %q debe tener formato 001-001-000000001", m.Number))
	}
	if m.IssueDate.IsZero() {
		errs = append(errs, errors.New("documento modificado: fecha de emisión obligatoria"))
	}
	return errs
}

func validFiscalPeriod(p string) bool {
	if len(p) != 7 || p[2] != '/' {
		return false
	}
	if !pkgsri.IsNumeric(p[:2]) || !pkgsri.IsNumeric(p[3:]) {
		return false
	}
	m := int(p[0]-'0')*10 + int(p[1]-'0')
	return m >= 1 && m <= 12
}
