package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// IssuerSetupUseCase alta de un emisor: configuración SRI del tenant, establecimiento y
// punto de emisión con secuenciales en cero.
type IssuerSetupUseCase struct {
	configRepo repository.SRIConfigurationRepository
	estRepo    repository.EstablishmentRepository
	pointRepo  repository.EmissionPointRepository
	inspector  CertificateInspector
}

// NewIssuerSetupUseCase construye el caso de uso. inspector valida el .p12 antes de guardarlo.
func NewIssuerSetupUseCase(
	configRepo repository.SRIConfigurationRepository,
	estRepo repository.EstablishmentRepository,
	pointRepo repository.EmissionPointRepository,
	inspector CertificateInspector,
) *IssuerSetupUseCase {
	return &IssuerSetupUseCase{configRepo: configRepo, estRepo: estRepo, pointRepo: pointRepo, inspector: inspector}
}

// Setup registra (o actualiza) la configuración del tenant y crea el establecimiento y el
// punto de emisión indicados. El certificado es opcional; si viene, debe abrirse con la
// contraseña y estar vigente.
func (uc *IssuerSetupUseCase) Setup(ctx context.Context, in dto.IssuerSetupRequest) (*dto.IssuerSetupResult, error) {
	if strings.TrimSpace(in.TenantID) == "" {
		return nil, domain.ErrTenantRequired
	}
	if err := validateIssuer(in); err != nil {
		return nil, err
	}

	cfg := &entity.SRIConfiguration{
		TenantID:           in.TenantID,
		RUC:                in.RUC,
		LegalName:          strings.TrimSpace(in.LegalName),
		TradeName:          strings.TrimSpace(in.TradeName),
		MainAddress:        strings.TrimSpace(in.MainAddress),
		Environment:        entity.Environment(in.Environment),
		RequiredAccounting: in.RequiredAccounting,
		SpecialTaxpayer:    in.SpecialTaxpayer,
	}
	if existing, err := uc.configRepo.GetByTenantID(ctx, in.TenantID); err != nil {
		return nil, fmt.Errorf("leer configuración SRI: %w", err)
	} else if existing != nil {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	} else {
		cfg.ID = uuid.NewString()
	}

	result := &dto.IssuerSetupResult{}
	if len(in.Certificate) > 0 {
		if in.CertificatePassword == "" {
			return nil, fmt.Errorf("%w: el certificado requiere contraseña", domain.ErrInvalidArgument)
		}
		subject, notAfter, err := uc.inspector.Inspect(in.Certificate, in.CertificatePassword)
		if err != nil {
			return nil, err
		}
		expires := notAfter.UTC()
		cfg.CertificateData = in.Certificate
		cfg.CertificatePassword = entity.Secret(in.CertificatePassword)
		cfg.CertificateExpiresAt = &expires
		result.CertificateSubject = subject
		result.CertificateExpiresAt = &expires
	}

	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	if err := uc.configRepo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}

	est := &entity.Establishment{
		ID:       uuid.NewString(),
		TenantID: in.TenantID,
		Code:     in.EstablishmentCode,
		Name:     strings.TrimSpace(in.EstablishmentName),
		Address:  strings.TrimSpace(in.EstablishmentAddress),
	}
	if err := uc.estRepo.Create(ctx, est); err != nil {
		return nil, err
	}
	point := &entity.EmissionPoint{
		ID:              uuid.NewString(),
		TenantID:        in.TenantID,
		EstablishmentID: est.ID,
		Code:            in.EmissionPointCode,
		IsActive:        true,
	}
	if err := uc.pointRepo.Create(ctx, point); err != nil {
		return nil, err
	}

	result.ConfigurationID = cfg.ID
	result.EstablishmentID = est.ID
	result.EmissionPointID = point.ID
	return result, nil
}

func validateIssuer(in dto.IssuerSetupRequest) error {
	if err := pkgsri.ValidateRUC(in.RUC); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if strings.TrimSpace(in.LegalName) == "" || strings.TrimSpace(in.MainAddress) == "" {
		return fmt.Errorf("%w: razón social y dirección matriz son obligatorias", domain.ErrInvalidArgument)
	}
	switch entity.Environment(in.Environment) {
	case entity.EnvironmentTest, entity.EnvironmentProduction:
	default:
		return fmt.Errorf("%w: ambiente %q inválido (1 pruebas, 2 producción)", domain.ErrInvalidArgument, in.Environment)
	}
	for name, code := range map[string]string{"establecimiento": in.EstablishmentCode, "punto de emisión": in.EmissionPointCode} {
		if len(code) != 3 || !pkgsri.IsNumeric(code) || code == "000" {
			return fmt.Errorf("%w: código de %s %q debe tener 3 dígitos", domain.ErrInvalidArgument, name, code)
		}
	}
	return nil
}
