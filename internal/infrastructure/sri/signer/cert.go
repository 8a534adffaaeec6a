// Carga de certificado desde .p12 (PKCS#12).

package signer

import (
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"time"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// Certificate llave privada y certificado hoja del firmante.
type Certificate struct {
	PrivateKey *rsa.PrivateKey
	Leaf       *x509.Certificate
	Chain      []*x509.Certificate
}

// LoadFromP12 decodifica el .p12 y verifica su vigencia en now.
// Los errores nunca incluyen la contraseña.
func LoadFromP12(data []byte, password string, now time.Time) (*Certificate, error) {
	if len(data) == 0 {
		return nil, domain.ErrCertificateMissing
	}
	priv, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("el certificado debe incluir llave privada RSA (recibido %T)", priv)
	}
	if now.After(leaf.NotAfter) {
		return nil, fmt.Errorf("%w: venció el %s", domain.ErrCertificateExpired, leaf.NotAfter.Format("2006-01-02"))
	}
	if now.Before(leaf.NotBefore) {
		return nil, fmt.Errorf("%w: vigente desde %s", domain.ErrCertificateExpired, leaf.NotBefore.Format("2006-01-02"))
	}
	return &Certificate{PrivateKey: key, Leaf: leaf, Chain: chain}, nil
}

// CertDigestAndIssuerSerial digest SHA-1 del certificado (Base64), emisor y serial decimal para XAdES.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64, issuerName, serial string) {
	h := sha1.Sum(cert.Raw)
	return base64.StdEncoding.EncodeToString(h[:]), cert.Issuer.String(), cert.SerialNumber.String()
}
