package sqlite

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

type configurationModel struct {
	ID                   string `gorm:"primaryKey;size:36"`
	TenantID             string `gorm:"size:64;uniqueIndex"`
	RUC                  string `gorm:"size:13"`
	LegalName            string
	TradeName            string
	MainAddress          string
	Environment          string `gorm:"size:1"`
	RequiredAccounting   bool
	SpecialTaxpayer      string
	CertificateData      []byte
	CertificatePassword  string
	CertificateExpiresAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (configurationModel) TableName() string { return "sri_configurations" }

type establishmentModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	TenantID  string `gorm:"size:64;uniqueIndex:ux_establishment_tenant_code"`
	Code      string `gorm:"size:3;uniqueIndex:ux_establishment_tenant_code"`
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (establishmentModel) TableName() string { return "establishments" }

type emissionPointModel struct {
	ID                 string `gorm:"primaryKey;size:36"`
	TenantID           string `gorm:"size:64;index"`
	EstablishmentID    string `gorm:"size:36;uniqueIndex:ux_point_establishment_code"`
	Code               string `gorm:"size:3;uniqueIndex:ux_point_establishment_code"`
	InvoiceSequence    int64  `gorm:"not null;default:0"`
	CreditNoteSequence int64  `gorm:"not null;default:0"`
	DebitNoteSequence  int64  `gorm:"not null;default:0"`
	RetentionSequence  int64  `gorm:"not null;default:0"`
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (emissionPointModel) TableName() string { return "emission_points" }

// documentModel los montos se guardan como texto decimal; SQLite los convertiría a REAL.
type documentModel struct {
	ID                  string `gorm:"primaryKey;size:36"`
	TenantID            string `gorm:"size:64;index"`
	Type                string `gorm:"size:2;uniqueIndex:ux_document_point_type_seq"`
	EmissionPointID     string `gorm:"size:36;uniqueIndex:ux_document_point_type_seq"`
	Sequential          int64  `gorm:"uniqueIndex:ux_document_point_type_seq"`
	IssueDate           time.Time
	Status              string  `gorm:"size:30;index"`
	Environment         string  `gorm:"size:1"`
	AccessKey           *string `gorm:"size:49;uniqueIndex"`
	XMLPath             string
	SignedXMLPath       string
	RidePath            string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	BuyerIDType         string
	BuyerID             string
	BuyerName           string
	BuyerEmail          string
	BuyerAddress        string
	Subtotal            string `gorm:"type:text"`
	TaxTotal            string `gorm:"type:text"`
	Total               string `gorm:"type:text"`
	Payload             string `gorm:"type:text"`
	XMLGeneratedAt      *time.Time
	RejectedAt          *time.Time
	DeletedAt           gorm.DeletedAt `gorm:"index"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (documentModel) TableName() string { return "electronic_documents" }

type errorLogModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	TenantID       string `gorm:"size:64;index:idx_error_log_document"`
	DocumentID     string `gorm:"size:36;index:idx_error_log_document"`
	Operation      string `gorm:"size:40"`
	ErrorCode      string `gorm:"size:40"`
	Message        string
	AdditionalInfo string
	CreatedAt      time.Time
}

func (errorLogModel) TableName() string { return "sri_error_logs" }

// ──────────────────────────────────────────────────────────────────────────────
// Conversión modelo <-> entidad
// ──────────────────────────────────────────────────────────────────────────────

func toConfigurationModel(c *entity.SRIConfiguration) configurationModel {
	return configurationModel{
		ID:                   c.ID,
		TenantID:             c.TenantID,
		RUC:                  c.RUC,
		LegalName:            c.LegalName,
		TradeName:            c.TradeName,
		MainAddress:          c.MainAddress,
		Environment:          string(c.Environment),
		RequiredAccounting:   c.RequiredAccounting,
		SpecialTaxpayer:      c.SpecialTaxpayer,
		CertificateData:      c.CertificateData,
		CertificatePassword:  c.CertificatePassword.Reveal(),
		CertificateExpiresAt: c.CertificateExpiresAt,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func (m configurationModel) toEntity() *entity.SRIConfiguration {
	return &entity.SRIConfiguration{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		RUC:                  m.RUC,
		LegalName:            m.LegalName,
		TradeName:            m.TradeName,
		MainAddress:          m.MainAddress,
		Environment:          entity.Environment(m.Environment),
		RequiredAccounting:   m.RequiredAccounting,
		SpecialTaxpayer:      m.SpecialTaxpayer,
		CertificateData:      m.CertificateData,
		CertificatePassword:  entity.Secret(m.CertificatePassword),
		CertificateExpiresAt: m.CertificateExpiresAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func toDocumentModel(doc entity.SRIDocument) (documentModel, error) {
	d := doc.Base()
	payload, err := entity.MarshalDocumentPayload(doc)
	if err != nil {
		return documentModel{}, err
	}
	m := documentModel{
		ID:                  d.ID,
		TenantID:            d.TenantID,
		Type:                string(d.Type),
		EmissionPointID:     d.EmissionPointID,
		Sequential:          d.Sequential,
		IssueDate:           d.IssueDate.UTC(),
		Status:              string(d.Status),
		Environment:         string(d.Environment),
		XMLPath:             d.XMLPath,
		SignedXMLPath:       d.SignedXMLPath,
		RidePath:            d.RidePath,
		AuthorizationNumber: d.AuthorizationNumber,
		AuthorizedAt:        d.AuthorizedAt,
		BuyerIDType:         d.BuyerIDType,
		BuyerID:             d.BuyerID,
		BuyerName:           d.BuyerName,
		BuyerEmail:          d.BuyerEmail,
		BuyerAddress:        d.BuyerAddress,
		Subtotal:            d.Subtotal.String(),
		TaxTotal:            d.TaxTotal.String(),
		Total:               d.Total.String(),
		Payload:             string(payload),
		XMLGeneratedAt:      d.XMLGeneratedAt,
		RejectedAt:          d.RejectedAt,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
	if d.AccessKey != "" {
		key := d.AccessKey
		m.AccessKey = &key
	}
	return m, nil
}

func (m documentModel) toEntity() (entity.SRIDocument, error) {
	base := entity.ElectronicDocument{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		Type:                entity.DocumentType(m.Type),
		EmissionPointID:     m.EmissionPointID,
		Sequential:          m.Sequential,
		IssueDate:           m.IssueDate,
		Status:              entity.DocumentStatus(m.Status),
		Environment:         entity.Environment(m.Environment),
		XMLPath:             m.XMLPath,
		SignedXMLPath:       m.SignedXMLPath,
		RidePath:            m.RidePath,
		AuthorizationNumber: m.AuthorizationNumber,
		AuthorizedAt:        m.AuthorizedAt,
		BuyerIDType:         m.BuyerIDType,
		BuyerID:             m.BuyerID,
		BuyerName:           m.BuyerName,
		BuyerEmail:          m.BuyerEmail,
		BuyerAddress:        m.BuyerAddress,
		Subtotal:            parseDecimal(m.Subtotal),
		TaxTotal:            parseDecimal(m.TaxTotal),
		Total:               parseDecimal(m.Total),
		XMLGeneratedAt:      m.XMLGeneratedAt,
		RejectedAt:          m.RejectedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.AccessKey != nil {
		base.AccessKey = *m.AccessKey
	}
	return entity.NewDocument(base, []byte(m.Payload))
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
