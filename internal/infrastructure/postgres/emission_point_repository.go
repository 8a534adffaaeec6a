package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var (
	_ repository.EstablishmentRepository = (*EstablishmentRepo)(nil)
	_ repository.EmissionPointRepository = (*EmissionPointRepo)(nil)
)

// sequenceColumns columna del contador por tipo de comprobante.
// Lista cerrada: el nombre de columna se interpola en el SQL.
var sequenceColumns = map[entity.DocumentType]string{
	entity.DocumentTypeInvoice:    "invoice_sequence",
	entity.DocumentTypeCreditNote: "credit_note_sequence",
	entity.DocumentTypeDebitNote:  "debit_note_sequence",
	entity.DocumentTypeRetention:  "retention_sequence",
}

// EstablishmentRepo implementación de EstablishmentRepository.
type EstablishmentRepo struct {
	q Querier
}

// NewEstablishmentRepository construye el adaptador.
func NewEstablishmentRepository(q Querier) *EstablishmentRepo {
	return &EstablishmentRepo{q: q}
}

func (r *EstablishmentRepo) Create(ctx context.Context, est *entity.Establishment) error {
	if est.ID == "" {
		est.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if est.CreatedAt.IsZero() {
		est.CreatedAt = now
	}
	est.UpdatedAt = now
	query := `
		INSERT INTO establishments (id, tenant_id, code, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, est.ID, est.TenantID, est.Code, est.Name, est.Address, est.CreatedAt, est.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: establecimiento %s ya existe", domain.ErrConflict, est.Code)
		}
		return fmt.Errorf("insert establishment: %w", err)
	}
	return nil
}

func (r *EstablishmentRepo) GetByID(ctx context.Context, id string) (*entity.Establishment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT id, tenant_id, code, name, address, created_at, updated_at FROM establishments WHERE id = $1`
	var e entity.Establishment
	err := r.q.QueryRow(ctx, query, id).Scan(&e.ID, &e.TenantID, &e.Code, &e.Name, &e.Address, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get establishment: %w", err)
	}
	return &e, nil
}

// EmissionPointRepo implementación de EmissionPointRepository (usable con pool o tx).
type EmissionPointRepo struct {
	q Querier
}

// NewEmissionPointRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmissionPointRepository(q Querier) *EmissionPointRepo {
	return &EmissionPointRepo{q: q}
}

func (r *EmissionPointRepo) Create(ctx context.Context, p *entity.EmissionPoint) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	query := `
		INSERT INTO emission_points (id, tenant_id, establishment_id, code, invoice_sequence, credit_note_sequence,
			debit_note_sequence, retention_sequence, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.TenantID, p.EstablishmentID, p.Code,
		p.InvoiceSequence, p.CreditNoteSequence, p.DebitNoteSequence, p.RetentionSequence,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: punto de emisión %s ya existe", domain.ErrConflict, p.Code)
		}
		return fmt.Errorf("insert emission point: %w", err)
	}
	return nil
}

func (r *EmissionPointRepo) GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `
		SELECT id, tenant_id, establishment_id, code, invoice_sequence, credit_note_sequence,
		       debit_note_sequence, retention_sequence, is_active, created_at, updated_at
		FROM emission_points WHERE id = $1`
	var p entity.EmissionPoint
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.TenantID, &p.EstablishmentID, &p.Code,
		&p.InvoiceSequence, &p.CreditNoteSequence, &p.DebitNoteSequence, &p.RetentionSequence,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emission point: %w", err)
	}
	return &p, nil
}

// AllocateNext incrementa el contador con un único UPDATE ... RETURNING; el lock de fila
// de PostgreSQL serializa las llamadas concurrentes sobre el mismo punto.
func (r *EmissionPointRepo) AllocateNext(ctx context.Context, tenantID, emissionPointID string, docType entity.DocumentType) (int64, error) {
	col, ok := sequenceColumns[docType]
	if !ok {
		return 0, fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidArgument, docType)
	}
	if _, err := uuid.Parse(emissionPointID); err != nil {
		return 0, fmt.Errorf("%w: punto de emisión %s", domain.ErrNotFound, emissionPointID)
	}
	query := fmt.Sprintf(`
		UPDATE emission_points
		SET %[1]s = %[1]s + 1, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND is_active AND %[1]s < $3
		RETURNING %[1]s`, col)
	var next int64
	err := r.q.QueryRow(ctx, query, emissionPointID, tenantID, int64(entity.MaxSequential)).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("allocate sequential: %w", err)
	}

	// Sin filas: el punto no existe para el tenant, está inactivo o el contador llegó al máximo.
	var active bool
	err = r.q.QueryRow(ctx, `SELECT is_active FROM emission_points WHERE id = $1 AND tenant_id = $2`,
		emissionPointID, tenantID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: punto de emisión %s", domain.ErrNotFound, emissionPointID)
	}
	if err != nil {
		return 0, fmt.Errorf("allocate sequential: %w", err)
	}
	if !active {
		return 0, fmt.Errorf("%w: el punto de emisión %s está inactivo", domain.ErrPreconditionFailed, emissionPointID)
	}
	return 0, fmt.Errorf("%w: secuencial agotado (%d) para el tipo %s", domain.ErrPreconditionFailed, entity.MaxSequential, docType)
}
