package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var (
	_ repository.ElectronicDocumentRepository = (*DocumentRepo)(nil)
	_ repository.EstablishmentRepository      = (*EstablishmentRepo)(nil)
	_ repository.EmissionPointRepository      = (*EmissionPointRepo)(nil)
	_ repository.SRIConfigurationRepository   = (*ConfigurationRepo)(nil)
	_ repository.SRIErrorLogRepository        = (*ErrorLogRepo)(nil)
	_ billing.TxRunner                        = (*TxRunner)(nil)
)

var sequenceColumns = map[entity.DocumentType]string{
	entity.DocumentTypeInvoice:    "invoice_sequence",
	entity.DocumentTypeCreditNote: "credit_note_sequence",
	entity.DocumentTypeDebitNote:  "debit_note_sequence",
	entity.DocumentTypeRetention:  "retention_sequence",
}

// ──────────────────────────────────────────────────────────────────────────────
// Comprobantes
// ──────────────────────────────────────────────────────────────────────────────

// DocumentRepo comprobantes electrónicos sobre GORM.
type DocumentRepo struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepo { return &DocumentRepo{db: db} }

func (r *DocumentRepo) Create(ctx context.Context, doc entity.SRIDocument) error {
	if doc.Base().ID == "" {
		doc.Base().ID = uuid.NewString()
	}
	m, err := toDocumentModel(doc)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: el secuencial %d ya existe en el punto de emisión", domain.ErrConflict, m.Sequential)
		}
		return fmt.Errorf("insert electronic document: %w", err)
	}
	return nil
}

// GetByID (nil, nil) si no existe; el scope de soft delete excluye los eliminados.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (entity.SRIDocument, error) {
	var m documentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get electronic document: %w", err)
	}
	return m.toEntity()
}

func (r *DocumentRepo) Update(ctx context.Context, doc entity.SRIDocument) error {
	d := doc.Base()
	var accessKey any
	if d.AccessKey != "" {
		accessKey = d.AccessKey
	}
	res := r.db.WithContext(ctx).Model(&documentModel{}).
		Where("id = ? AND tenant_id = ?", d.ID, d.TenantID).
		Updates(map[string]any{
			"status":               string(d.Status),
			"sequential":           d.Sequential,
			"access_key":           gorm.Expr("COALESCE(access_key, ?)", accessKey),
			"xml_path":             d.XMLPath,
			"signed_xml_path":      d.SignedXMLPath,
			"ride_path":            d.RidePath,
			"authorization_number": d.AuthorizationNumber,
			"authorized_at":        d.AuthorizedAt,
			"xml_generated_at":     d.XMLGeneratedAt,
			"rejected_at":          d.RejectedAt,
			"updated_at":           d.UpdatedAt.UTC(),
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: clave de acceso o secuencial duplicado", domain.ErrConflict)
		}
		return fmt.Errorf("update electronic document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, d.ID)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Establecimientos y puntos de emisión
// ──────────────────────────────────────────────────────────────────────────────

type EstablishmentRepo struct {
	db *gorm.DB
}

func NewEstablishmentRepository(db *gorm.DB) *EstablishmentRepo { return &EstablishmentRepo{db: db} }

func (r *EstablishmentRepo) Create(ctx context.Context, est *entity.Establishment) error {
	if est.ID == "" {
		est.ID = uuid.NewString()
	}
	m := establishmentModel{
		ID: est.ID, TenantID: est.TenantID, Code: est.Code, Name: est.Name, Address: est.Address,
		CreatedAt: est.CreatedAt, UpdatedAt: est.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: establecimiento %s ya existe", domain.ErrConflict, est.Code)
		}
		return fmt.Errorf("insert establishment: %w", err)
	}
	est.CreatedAt, est.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *EstablishmentRepo) GetByID(ctx context.Context, id string) (*entity.Establishment, error) {
	var m establishmentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get establishment: %w", err)
	}
	return &entity.Establishment{
		ID: m.ID, TenantID: m.TenantID, Code: m.Code, Name: m.Name, Address: m.Address,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}, nil
}

type EmissionPointRepo struct {
	db *gorm.DB
}

func NewEmissionPointRepository(db *gorm.DB) *EmissionPointRepo { return &EmissionPointRepo{db: db} }

func (r *EmissionPointRepo) Create(ctx context.Context, p *entity.EmissionPoint) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m := emissionPointModel{
		ID:                 p.ID,
		TenantID:           p.TenantID,
		EstablishmentID:    p.EstablishmentID,
		Code:               p.Code,
		InvoiceSequence:    p.InvoiceSequence,
		CreditNoteSequence: p.CreditNoteSequence,
		DebitNoteSequence:  p.DebitNoteSequence,
		RetentionSequence:  p.RetentionSequence,
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: punto de emisión %s ya existe", domain.ErrConflict, p.Code)
		}
		return fmt.Errorf("insert emission point: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *EmissionPointRepo) GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error) {
	var m emissionPointModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emission point: %w", err)
	}
	return &entity.EmissionPoint{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		EstablishmentID:    m.EstablishmentID,
		Code:               m.Code,
		InvoiceSequence:    m.InvoiceSequence,
		CreditNoteSequence: m.CreditNoteSequence,
		DebitNoteSequence:  m.DebitNoteSequence,
		RetentionSequence:  m.RetentionSequence,
		IsActive:           m.IsActive,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, nil
}

// AllocateNext UPDATE ... RETURNING en una sola sentencia; con una única conexión
// SQLite ejecuta las llamadas concurrentes una tras otra.
func (r *EmissionPointRepo) AllocateNext(ctx context.Context, tenantID, emissionPointID string, docType entity.DocumentType) (int64, error) {
	col, ok := sequenceColumns[docType]
	if !ok {
		return 0, fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidArgument, docType)
	}
	query := fmt.Sprintf(`UPDATE emission_points SET %[1]s = %[1]s + 1, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND is_active = ? AND %[1]s < ? RETURNING %[1]s`, col)

	var next int64
	err := r.db.WithContext(ctx).
		Raw(query, time.Now().UTC(), emissionPointID, tenantID, true, int64(entity.MaxSequential)).
		Row().Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("allocate sequential: %w", err)
	}

	var m emissionPointModel
	err = r.db.WithContext(ctx).Select("id", "is_active").
		Where("id = ? AND tenant_id = ?", emissionPointID, tenantID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: punto de emisión %s", domain.ErrNotFound, emissionPointID)
	}
	if err != nil {
		return 0, fmt.Errorf("allocate sequential: %w", err)
	}
	if !m.IsActive {
		return 0, fmt.Errorf("%w: el punto de emisión %s está inactivo", domain.ErrPreconditionFailed, emissionPointID)
	}
	return 0, fmt.Errorf("%w: secuencial agotado (%d) para el tipo %s", domain.ErrPreconditionFailed, entity.MaxSequential, docType)
}

// ──────────────────────────────────────────────────────────────────────────────
// Configuración SRI y log de errores
// ──────────────────────────────────────────────────────────────────────────────

type ConfigurationRepo struct {
	db *gorm.DB
}

func NewConfigurationRepository(db *gorm.DB) *ConfigurationRepo { return &ConfigurationRepo{db: db} }

func (r *ConfigurationRepo) GetByTenantID(ctx context.Context, tenantID string) (*entity.SRIConfiguration, error) {
	var m configurationModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sri configuration: %w", err)
	}
	return m.toEntity(), nil
}

// Upsert conserva ID y fecha de creación de la fila existente del tenant.
func (r *ConfigurationRepo) Upsert(ctx context.Context, cfg *entity.SRIConfiguration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing configurationModel
		err := tx.Where("tenant_id = ?", cfg.TenantID).First(&existing).Error
		switch {
		case err == nil:
			cfg.ID = existing.ID
			cfg.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			if cfg.ID == "" {
				cfg.ID = uuid.NewString()
			}
			if cfg.CreatedAt.IsZero() {
				cfg.CreatedAt = time.Now().UTC()
			}
		default:
			return fmt.Errorf("get sri configuration: %w", err)
		}
		cfg.UpdatedAt = time.Now().UTC()
		m := toConfigurationModel(cfg)
		if err := tx.Save(&m).Error; err != nil {
			return fmt.Errorf("upsert sri configuration del tenant %s: %w", cfg.TenantID, err)
		}
		return nil
	})
}

type ErrorLogRepo struct {
	db *gorm.DB
}

func NewErrorLogRepository(db *gorm.DB) *ErrorLogRepo { return &ErrorLogRepo{db: db} }

func (r *ErrorLogRepo) Add(ctx context.Context, e *entity.SRIErrorLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m := errorLogModel{
		ID:             e.ID,
		TenantID:       e.TenantID,
		DocumentID:     e.DocumentID,
		Operation:      e.Operation,
		ErrorCode:      e.ErrorCode,
		Message:        e.Message,
		AdditionalInfo: e.AdditionalInfo,
		CreatedAt:      e.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert sri error log: %w", err)
	}
	return nil
}

func (r *ErrorLogRepo) GetByDocumentID(ctx context.Context, tenantID, documentID string) ([]*entity.SRIErrorLog, error) {
	var rows []errorLogModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sri error logs: %w", err)
	}
	out := make([]*entity.SRIErrorLog, 0, len(rows))
	for _, m := range rows {
		out = append(out, &entity.SRIErrorLog{
			ID:             m.ID,
			TenantID:       m.TenantID,
			DocumentID:     m.DocumentID,
			Operation:      m.Operation,
			ErrorCode:      m.ErrorCode,
			Message:        m.Message,
			AdditionalInfo: m.AdditionalInfo,
			CreatedAt:      m.CreatedAt,
		})
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacciones
// ──────────────────────────────────────────────────────────────────────────────

// TxRunner ejecuta callbacks dentro de una transacción GORM.
type TxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) *TxRunner { return &TxRunner{db: db} }

func (r *TxRunner) RunInTx(ctx context.Context, fn func(
	docRepo repository.ElectronicDocumentRepository,
	pointRepo repository.EmissionPointRepository,
) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewDocumentRepository(tx), NewEmissionPointRepository(tx))
	})
}
