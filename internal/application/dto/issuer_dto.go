package dto

import "time"

// IssuerSetupRequest datos para registrar un emisor: configuración SRI, establecimiento y punto de emisión.
type IssuerSetupRequest struct {
	TenantID           string
	RUC                string
	LegalName          string
	TradeName          string
	MainAddress        string
	Environment        string // 1 pruebas | 2 producción
	RequiredAccounting bool
	SpecialTaxpayer    string

	Certificate         []byte
	CertificatePassword string

	EstablishmentCode    string
	EstablishmentName    string
	EstablishmentAddress string
	EmissionPointCode    string
}

// IssuerSetupResult identificadores creados por el alta del emisor.
type IssuerSetupResult struct {
	ConfigurationID      string     `json:"configuration_id"`
	EstablishmentID      string     `json:"establishment_id"`
	EmissionPointID      string     `json:"emission_point_id"`
	CertificateSubject   string     `json:"certificate_subject,omitempty"`
	CertificateExpiresAt *time.Time `json:"certificate_expires_at,omitempty"`
}
