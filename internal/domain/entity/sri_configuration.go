package entity

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Secret valor sensible que nunca se imprime en logs ni en JSON.
type Secret string

const redacted = "[REDACTED]"

func (s Secret) String() string { return redacted }

// Reveal devuelve el valor real; solo debe usarse al momento de firmar.
func (s Secret) Reveal() string { return string(s) }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

// MarshalZerologObject evita que zerolog serialice el valor real con Interface().
func (s Secret) MarshalZerologObject(e *zerolog.Event) { e.Str("value", redacted) }

// SRIConfiguration datos tributarios y de firma de un tenant (uno por tenant).
type SRIConfiguration struct {
	ID                   string
	TenantID             string
	RUC                  string // 13 dígitos
	LegalName            string // razonSocial
	TradeName            string // nombreComercial
	MainAddress          string // dirMatriz
	Environment          Environment
	RequiredAccounting   bool   // obligadoContabilidad
	SpecialTaxpayer      string // contribuyenteEspecial (resolución), opcional
	CertificateData      []byte `json:"-"`
	CertificatePassword  Secret `json:"-"`
	CertificateExpiresAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasCertificate indica si hay certificado y contraseña configurados.
func (c *SRIConfiguration) HasCertificate() bool {
	return len(c.CertificateData) > 0 && c.CertificatePassword != ""
}

// IsCertificateExpired verifica la vigencia del certificado en el instante now.
func (c *SRIConfiguration) IsCertificateExpired(now time.Time) bool {
	if c.CertificateExpiresAt == nil {
		return false
	}
	return !now.Before(*c.CertificateExpiresAt)
}
