package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

const dateLayout = "2006-01-02"

// DocumentUseCase crea borradores, consulta comprobantes y maneja el ciclo comercial posterior
// a la autorización. El flujo SRI vive en SRIOrchestrator.
type DocumentUseCase struct {
	txRunner   TxRunner
	docRepo    repository.ElectronicDocumentRepository
	configRepo repository.SRIConfigurationRepository
	pointRepo  repository.EmissionPointRepository
	store      ArtifactStore
	now        func() time.Time
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	txRunner TxRunner,
	docRepo repository.ElectronicDocumentRepository,
	configRepo repository.SRIConfigurationRepository,
	pointRepo repository.EmissionPointRepository,
	store ArtifactStore,
) *DocumentUseCase {
	return &DocumentUseCase{
		txRunner:   txRunner,
		docRepo:    docRepo,
		configRepo: configRepo,
		pointRepo:  pointRepo,
		store:      store,
		now:        time.Now,
	}
}

// CreateDraft valida la solicitud, asigna el secuencial del punto de emisión y guarda el
// comprobante en DRAFT dentro de una sola transacción.
func (uc *DocumentUseCase) CreateDraft(ctx context.Context, tenantID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	cfg, err := uc.configRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("obtener configuración SRI: %w", err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: registre la configuración SRI antes de emitir", domain.ErrConfigurationMissing)
	}

	point, err := uc.pointRepo.GetByID(ctx, in.EmissionPointID)
	if err != nil {
		return nil, fmt.Errorf("obtener punto de emisión: %w", err)
	}
	if point == nil || point.TenantID != tenantID {
		return nil, fmt.Errorf("%w: punto de emisión %s", domain.ErrNotFound, in.EmissionPointID)
	}
	if !point.IsActive {
		return nil, fmt.Errorf("%w: el punto de emisión %s está inactivo", domain.ErrPreconditionFailed, point.Code)
	}

	now := uc.now()
	base := entity.ElectronicDocument{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		Type:            entity.DocumentType(in.Type),
		EmissionPointID: point.ID,
		Status:          entity.StatusDraft,
		Environment:     cfg.Environment,
		BuyerIDType:     in.BuyerIDType,
		BuyerID:         in.BuyerID,
		BuyerName:       in.BuyerName,
		BuyerEmail:      in.BuyerEmail,
		BuyerAddress:    in.BuyerAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.IssueDate == "" {
		base.IssueDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else if base.IssueDate, err = time.Parse(dateLayout, in.IssueDate); err != nil {
		return nil, fmt.Errorf("%w: issue_date debe tener formato YYYY-MM-DD", domain.ErrInvalidArgument)
	}

	doc, err := buildDocument(base, in)
	if err != nil {
		return nil, err
	}
	entity.RecalculateTotals(doc)
	if err := domainsri.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err = uc.txRunner.RunInTx(ctx, func(docRepo repository.ElectronicDocumentRepository, pointRepo repository.EmissionPointRepository) error {
		seq, err := pointRepo.AllocateNext(ctx, tenantID, point.ID, base.Type)
		if err != nil {
			return err
		}
		doc.Base().Sequential = seq
		return docRepo.Create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// GetDocument devuelve el comprobante si pertenece al tenant.
func (uc *DocumentUseCase) GetDocument(ctx context.Context, tenantID, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// DownloadRide devuelve el PDF ya generado y un nombre de archivo.
func (uc *DocumentUseCase) DownloadRide(ctx context.Context, tenantID, id string) ([]byte, string, error) {
	doc, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	base := doc.Base()
	if base.RidePath == "" {
		return nil, "", fmt.Errorf("%w: el RIDE aún no se ha generado", domain.ErrFileNotFound)
	}
	pdf, err := uc.store.Load(ctx, base.RidePath)
	if err != nil {
		return nil, "", err
	}
	return pdf, fmt.Sprintf("RIDE_%s.pdf", base.AccessKey), nil
}

// commercialStatuses estados a los que se puede llegar fuera del flujo SRI.
var commercialStatuses = map[entity.DocumentStatus]bool{
	entity.StatusSent:      true,
	entity.StatusPaid:      true,
	entity.StatusOverdue:   true,
	entity.StatusCancelled: true,
	entity.StatusVoided:    true,
}

// ChangeStatus aplica una transición del ciclo comercial (enviado, pagado, vencido, anulado).
func (uc *DocumentUseCase) ChangeStatus(ctx context.Context, tenantID, id string, in dto.ChangeStatusRequest) (*dto.DocumentResponse, error) {
	to := entity.DocumentStatus(in.Status)
	if !commercialStatuses[to] {
		return nil, fmt.Errorf("%w: el estado %q solo lo asigna el flujo SRI", domain.ErrInvalidArgument, in.Status)
	}
	doc, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	base := doc.Base()
	if err := domainsri.Apply(base, to); err != nil {
		return nil, err
	}
	base.UpdatedAt = uc.now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("persistir comprobante: %w", err)
	}
	return toDocumentResponse(doc), nil
}

func (uc *DocumentUseCase) load(ctx context.Context, tenantID, id string) (entity.SRIDocument, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener comprobante: %w", err)
	}
	if doc == nil || doc.Base().TenantID != tenantID || doc.Base().DeletedAt != nil {
		return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

// buildDocument arma el comprobante concreto según el tipo solicitado.
func buildDocument(base entity.ElectronicDocument, in dto.CreateDocumentRequest) (entity.SRIDocument, error) {
	switch base.Type {
	case entity.DocumentTypeInvoice:
		inv := &entity.Invoice{ElectronicDocument: base, Lines: toLines(in.Lines)}
		for _, p := range in.Payments {
			inv.Payments = append(inv.Payments, entity.Payment{Method: p.Method, Amount: p.Amount, Term: p.Term, Unit: p.Unit})
		}
		if len(inv.Payments) == 0 {
			// Sin formas de pago explícitas se declara el total sin sistema financiero.
			inv.RecalculateTotals()
			inv.Payments = []entity.Payment{{Method: pkgsri.PaymentSinSistemaFinanciero, Amount: inv.Total}}
		}
		return inv, nil

	case entity.DocumentTypeCreditNote:
		modified, err := toModified(in.Modified)
		if err != nil {
			return nil, err
		}
		return &entity.CreditNote{ElectronicDocument: base, Lines: toLines(in.Lines), Modified: modified, Reason: in.Reason}, nil

	case entity.DocumentTypeDebitNote:
		modified, err := toModified(in.Modified)
		if err != nil {
			return nil, err
		}
		rate, ok := pkgsri.IVARates[in.TaxPercentageCode]
		if !ok {
			return nil, fmt.Errorf("%w: tax_percentage_code %q desconocido", domain.ErrInvalidArgument, in.TaxPercentageCode)
		}
		dn := &entity.DebitNote{
			ElectronicDocument: base,
			Modified:           modified,
			TaxPercentageCode:  in.TaxPercentageCode,
			TaxRate:            decimal.NewFromInt(int64(rate)),
		}
		for _, r := range in.Reasons {
			dn.Reasons = append(dn.Reasons, entity.DebitReason{Reason: r.Reason, Amount: r.Amount})
		}
		return dn, nil

	case entity.DocumentTypeRetention:
		ret := &entity.Retention{ElectronicDocument: base, FiscalPeriod: in.FiscalPeriod}
		for i, t := range in.Taxes {
			date, err := time.Parse(dateLayout, t.SupportDocDate)
			if err != nil {
				return nil, fmt.Errorf("%w: taxes[%d].support_doc_date debe tener formato YYYY-MM-DD", domain.ErrInvalidArgument, i)
			}
			ret.Taxes = append(ret.Taxes, entity.RetentionTax{
				TaxCode:          t.TaxCode,
				RetentionCode:    t.RetentionCode,
				TaxBase:          t.TaxBase,
				Percentage:       t.Percentage,
				SupportDocType:   entity.DocumentType(t.SupportDocType),
				SupportDocNumber: pkgsri.ExtractDigits(t.SupportDocNumber),
				SupportDocDate:   date,
			})
		}
		return ret, nil
	}
	return nil, fmt.Errorf("%w: tipo de comprobante %q no soportado", domain.ErrInvalidArgument, base.Type)
}

func toLines(in []dto.DocumentLineRequest) []entity.DocumentLine {
	lines := make([]entity.DocumentLine, 0, len(in))
	for _, l := range in {
		rate := decimal.Zero
		if r, ok := pkgsri.IVARates[l.TaxPercentageCode]; ok {
			rate = decimal.NewFromInt(int64(r))
		}
		lines = append(lines, entity.DocumentLine{
			Code:              l.Code,
			AuxiliaryCode:     l.AuxiliaryCode,
			Description:       l.Description,
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
			Discount:          l.Discount,
			TaxPercentageCode: l.TaxPercentageCode,
			TaxRate:           rate,
		})
	}
	return lines
}

func toModified(in *dto.ModifiedDocumentRequest) (entity.ModifiedDocument, error) {
	if in == nil {
		return entity.ModifiedDocument{}, errors.Join(domain.ErrInvalidArgument, errors.New("documento modificado obligatorio"))
	}
	date, err := time.Parse(dateLayout, in.IssueDate)
	if err != nil {
		return entity.ModifiedDocument{}, fmt.Errorf("%w: modified.issue_date debe tener formato YYYY-MM-DD", domain.ErrInvalidArgument)
	}
	return entity.ModifiedDocument{Type: entity.DocumentType(in.Type), Number: in.Number, IssueDate: date}, nil
}
