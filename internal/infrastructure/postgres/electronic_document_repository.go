package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.ElectronicDocumentRepository = (*ElectronicDocumentRepo)(nil)

// ElectronicDocumentRepo implementación de ElectronicDocumentRepository (usable con pool o tx).
type ElectronicDocumentRepo struct {
	q Querier
}

// NewElectronicDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewElectronicDocumentRepository(q Querier) *ElectronicDocumentRepo {
	return &ElectronicDocumentRepo{q: q}
}

// Create persiste cabecera y payload del comprobante.
func (r *ElectronicDocumentRepo) Create(ctx context.Context, doc entity.SRIDocument) error {
	d := doc.Base()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	payload, err := entity.MarshalDocumentPayload(doc)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO electronic_documents (
			id, tenant_id, type, emission_point_id, sequential, issue_date, status, environment,
			access_key, xml_path, signed_xml_path, ride_path, authorization_number, authorized_at,
			buyer_id_type, buyer_id, buyer_name, buyer_email, buyer_address,
			subtotal, tax_total, total, payload, xml_generated_at, rejected_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27)`
	_, err = r.q.Exec(ctx, query,
		d.ID, d.TenantID, string(d.Type), d.EmissionPointID, d.Sequential, d.IssueDate, string(d.Status), string(d.Environment),
		nullIfEmpty(d.AccessKey), nullIfEmpty(d.XMLPath), nullIfEmpty(d.SignedXMLPath), nullIfEmpty(d.RidePath),
		nullIfEmpty(d.AuthorizationNumber), utcPtr(d.AuthorizedAt),
		nullIfEmpty(d.BuyerIDType), nullIfEmpty(d.BuyerID), nullIfEmpty(d.BuyerName), nullIfEmpty(d.BuyerEmail), nullIfEmpty(d.BuyerAddress),
		d.Subtotal, d.TaxTotal, d.Total, payload, utcPtr(d.XMLGeneratedAt), utcPtr(d.RejectedAt),
		d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: el secuencial %d ya existe en el punto de emisión", domain.ErrConflict, d.Sequential)
		}
		return fmt.Errorf("insert electronic document: %w", err)
	}
	return nil
}

// GetByID obtiene el comprobante concreto. (nil, nil) si no existe o está eliminado.
func (r *ElectronicDocumentRepo) GetByID(ctx context.Context, id string) (entity.SRIDocument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `
		SELECT id, tenant_id, type, emission_point_id, sequential, issue_date, status, environment,
		       access_key, xml_path, signed_xml_path, ride_path, authorization_number, authorized_at,
		       buyer_id_type, buyer_id, buyer_name, buyer_email, buyer_address,
		       subtotal, tax_total, total, payload, xml_generated_at, rejected_at, created_at, updated_at
		FROM electronic_documents
		WHERE id = $1 AND deleted_at IS NULL`
	var d entity.ElectronicDocument
	var docType, status, env string
	var accessKey, xmlPath, signedPath, ridePath, authNumber *string
	var buyerIDType, buyerID, buyerName, buyerEmail, buyerAddress *string
	var payload []byte
	err := r.q.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.TenantID, &docType, &d.EmissionPointID, &d.Sequential, &d.IssueDate, &status, &env,
		&accessKey, &xmlPath, &signedPath, &ridePath, &authNumber, &d.AuthorizedAt,
		&buyerIDType, &buyerID, &buyerName, &buyerEmail, &buyerAddress,
		&d.Subtotal, &d.TaxTotal, &d.Total, &payload, &d.XMLGeneratedAt, &d.RejectedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get electronic document: %w", err)
	}
	d.Type = entity.DocumentType(docType)
	d.Status = entity.DocumentStatus(status)
	d.Environment = entity.Environment(env)
	d.AccessKey = derefStr(accessKey)
	d.XMLPath = derefStr(xmlPath)
	d.SignedXMLPath = derefStr(signedPath)
	d.RidePath = derefStr(ridePath)
	d.AuthorizationNumber = derefStr(authNumber)
	d.BuyerIDType = derefStr(buyerIDType)
	d.BuyerID = derefStr(buyerID)
	d.BuyerName = derefStr(buyerName)
	d.BuyerEmail = derefStr(buyerEmail)
	d.BuyerAddress = derefStr(buyerAddress)
	return entity.NewDocument(d, payload)
}

// Update persiste estado, secuencial, rutas, clave de acceso y datos de autorización.
// La clave de acceso solo se escribe si la fila aún no tiene una.
func (r *ElectronicDocumentRepo) Update(ctx context.Context, doc entity.SRIDocument) error {
	d := doc.Base()
	query := `
		UPDATE electronic_documents
		SET status               = $3,
		    access_key           = COALESCE(access_key, $4),
		    xml_path             = $5,
		    signed_xml_path      = $6,
		    ride_path            = $7,
		    authorization_number = $8,
		    authorized_at        = $9,
		    xml_generated_at     = $10,
		    rejected_at          = $11,
		    updated_at           = $12,
		    sequential           = $13
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query,
		d.ID, d.TenantID, string(d.Status),
		nullIfEmpty(d.AccessKey),
		nullIfEmpty(d.XMLPath),
		nullIfEmpty(d.SignedXMLPath),
		nullIfEmpty(d.RidePath),
		nullIfEmpty(d.AuthorizationNumber),
		utcPtr(d.AuthorizedAt),
		utcPtr(d.XMLGeneratedAt),
		utcPtr(d.RejectedAt),
		d.UpdatedAt.UTC(),
		d.Sequential,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: clave de acceso o secuencial duplicado", domain.ErrConflict)
		}
		return fmt.Errorf("update electronic document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, d.ID)
	}
	return nil
}
