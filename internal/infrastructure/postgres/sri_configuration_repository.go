package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var (
	_ repository.SRIConfigurationRepository = (*SRIConfigurationRepo)(nil)
	_ repository.SRIErrorLogRepository      = (*SRIErrorLogRepo)(nil)
)

// SRIConfigurationRepo implementación de SRIConfigurationRepository.
type SRIConfigurationRepo struct {
	q Querier
}

// NewSRIConfigurationRepository construye el adaptador.
func NewSRIConfigurationRepository(q Querier) *SRIConfigurationRepo {
	return &SRIConfigurationRepo{q: q}
}

func (r *SRIConfigurationRepo) GetByTenantID(ctx context.Context, tenantID string) (*entity.SRIConfiguration, error) {
	query := `
		SELECT id, tenant_id, ruc, legal_name, trade_name, main_address, environment, required_accounting,
		       special_taxpayer, certificate_data, certificate_password, certificate_expires_at, created_at, updated_at
		FROM sri_configurations WHERE tenant_id = $1`
	var c entity.SRIConfiguration
	var env string
	var tradeName, special, password *string
	err := r.q.QueryRow(ctx, query, tenantID).Scan(
		&c.ID, &c.TenantID, &c.RUC, &c.LegalName, &tradeName, &c.MainAddress, &env, &c.RequiredAccounting,
		&special, &c.CertificateData, &password, &c.CertificateExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sri configuration: %w", err)
	}
	c.Environment = entity.Environment(env)
	c.TradeName = derefStr(tradeName)
	c.SpecialTaxpayer = derefStr(special)
	c.CertificatePassword = entity.Secret(derefStr(password))
	return &c, nil
}

// Upsert crea o reemplaza la configuración del tenant (una por tenant).
func (r *SRIConfigurationRepo) Upsert(ctx context.Context, c *entity.SRIConfiguration) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	query := `
		INSERT INTO sri_configurations (id, tenant_id, ruc, legal_name, trade_name, main_address, environment,
			required_accounting, special_taxpayer, certificate_data, certificate_password, certificate_expires_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tenant_id) DO UPDATE
		SET ruc                    = EXCLUDED.ruc,
		    legal_name             = EXCLUDED.legal_name,
		    trade_name             = EXCLUDED.trade_name,
		    main_address           = EXCLUDED.main_address,
		    environment            = EXCLUDED.environment,
		    required_accounting    = EXCLUDED.required_accounting,
		    special_taxpayer       = EXCLUDED.special_taxpayer,
		    certificate_data       = EXCLUDED.certificate_data,
		    certificate_password   = EXCLUDED.certificate_password,
		    certificate_expires_at = EXCLUDED.certificate_expires_at,
		    updated_at             = EXCLUDED.updated_at
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		c.ID, c.TenantID, c.RUC, c.LegalName, nullIfEmpty(c.TradeName), c.MainAddress, string(c.Environment),
		c.RequiredAccounting, nullIfEmpty(c.SpecialTaxpayer), c.CertificateData,
		nullIfEmpty(c.CertificatePassword.Reveal()), utcPtr(c.CertificateExpiresAt),
		c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		// sin %w: el error del driver puede citar parámetros
		return fmt.Errorf("upsert sri configuration del tenant %s falló", c.TenantID)
	}
	return nil
}

// SRIErrorLogRepo registro append-only de errores SRI.
type SRIErrorLogRepo struct {
	q Querier
}

// NewSRIErrorLogRepository construye el adaptador.
func NewSRIErrorLogRepository(q Querier) *SRIErrorLogRepo {
	return &SRIErrorLogRepo{q: q}
}

func (r *SRIErrorLogRepo) Add(ctx context.Context, e *entity.SRIErrorLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO sri_error_logs (id, tenant_id, document_id, operation, error_code, message, additional_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.TenantID, e.DocumentID, e.Operation, e.ErrorCode, e.Message, nullIfEmpty(e.AdditionalInfo), e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert sri error log: %w", err)
	}
	return nil
}

func (r *SRIErrorLogRepo) GetByDocumentID(ctx context.Context, tenantID, documentID string) ([]*entity.SRIErrorLog, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return []*entity.SRIErrorLog{}, nil
	}
	query := `
		SELECT id, tenant_id, document_id, operation, error_code, message, additional_info, created_at
		FROM sri_error_logs
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list sri error logs: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.SRIErrorLog, 0)
	for rows.Next() {
		var e entity.SRIErrorLog
		var info *string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DocumentID, &e.Operation, &e.ErrorCode, &e.Message, &info, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sri error log: %w", err)
		}
		e.AdditionalInfo = derefStr(info)
		list = append(list, &e)
	}
	return list, rows.Err()
}
