package signer_test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucarion/c14n"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sri/signer"
)

const (
	password    = "clave-p12"
	unsignedXML = `<?xml version="1.0" encoding="UTF-8"?><factura id="comprobante" version="1.1.0"><infoTributaria><ambiente>1</ambiente><claveAcceso>1501202401179214673900110010010000000011234567810</claveAcceso></infoTributaria><infoFactura><razonSocialComprador>José Pérez &amp; Hijos</razonSocialComprador></infoFactura></factura>`
)

var signingTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// newP12 genera un certificado autofirmado y lo empaqueta en PKCS#12.
func newP12(t *testing.T, notBefore, notAfter time.Time) ([]byte, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(20240115),
		Subject:      pkix.Name{CommonName: "COMERCIAL ANDINA S.A.", Country: []string{"EC"}},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	pfx, err := pkcs12.Modern.Encode(key, cert, nil, password)
	require.NoError(t, err)
	return pfx, cert
}

func canonical(t *testing.T, el *etree.Element) []byte {
	t.Helper()
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	raw, err := d.WriteToBytes()
	require.NoError(t, err)
	dec := xml.NewDecoder(bytes.NewReader(raw))
	out, err := c14n.Canonicalize(dec)
	require.NoError(t, err)
	return out
}

func digest(t *testing.T, el *etree.Element) string {
	h := sha1.Sum(canonical(t, el))
	return base64.StdEncoding.EncodeToString(h[:])
}

func newService() *signer.DigitalSignatureService {
	return signer.NewDigitalSignatureService().WithClock(func() time.Time { return signingTime })
}

// ──────────────────────────────────────────────────────────────────────────────
// Firma
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_FirmaVerificableConLlavePublica(t *testing.T) {
	pfx, cert := newP12(t, signingTime.AddDate(-1, 0, 0), signingTime.AddDate(1, 0, 0))

	signed, err := newService().Sign([]byte(unsignedXML), pfx, password)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()
	require.NotNil(t, root)

	children := root.ChildElements()
	sig := children[len(children)-1]
	assert.Equal(t, "ds:Signature", sig.FullTag(), "la firma es el último hijo del comprobante")

	signedInfo := sig.FindElement("./ds:SignedInfo")
	require.NotNil(t, signedInfo)
	value := sig.FindElement("./ds:SignatureValue")
	require.NotNil(t, value)

	raw, err := base64.StdEncoding.DecodeString(value.Text())
	require.NoError(t, err)
	hash := sha1.Sum(canonical(t, signedInfo))
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, hash[:], raw))

	// Reference #comprobante: digest del documento sin la firma (transformación enveloped).
	unsigned := root.Copy()
	for _, c := range unsigned.ChildElements() {
		if c.FullTag() == "ds:Signature" {
			unsigned.RemoveChild(c)
		}
	}
	docRef := signedInfo.FindElement("./ds:Reference[@URI='#comprobante']/ds:DigestValue")
	require.NotNil(t, docRef)
	assert.Equal(t, digest(t, unsigned), docRef.Text())

	// KeyInfo y SignedProperties también están referenciados.
	keyInfo := sig.FindElement("./ds:KeyInfo")
	require.NotNil(t, keyInfo)
	keyRef := signedInfo.FindElement("./ds:Reference[@URI='#" + keyInfo.SelectAttrValue("Id", "") + "']/ds:DigestValue")
	require.NotNil(t, keyRef)
	assert.Equal(t, digest(t, keyInfo), keyRef.Text())

	props := sig.FindElement(".//etsi:SignedProperties")
	require.NotNil(t, props)
	propsRef := signedInfo.FindElement("./ds:Reference[@URI='#" + props.SelectAttrValue("Id", "") + "']/ds:DigestValue")
	require.NotNil(t, propsRef)
	assert.Equal(t, digest(t, props), propsRef.Text())

	assert.Equal(t, "2024-01-15T10:00:00Z", sig.FindElement(".//etsi:SigningTime").Text())
	assert.Equal(t, "20240115", sig.FindElement(".//ds:X509SerialNumber").Text())
}

func TestSign_NoModificaElContenido(t *testing.T) {
	pfx, _ := newP12(t, signingTime.AddDate(-1, 0, 0), signingTime.AddDate(1, 0, 0))

	signed, err := newService().Sign([]byte(unsignedXML), pfx, password)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	assert.Equal(t, "José Pérez & Hijos", doc.FindElement("//razonSocialComprador").Text())
	assert.Equal(t, "1501202401179214673900110010010000000011234567810", doc.FindElement("//claveAcceso").Text())
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_CertificadoExpirado(t *testing.T) {
	pfx, _ := newP12(t, signingTime.AddDate(-2, 0, 0), signingTime.AddDate(0, 0, -1))

	_, err := newService().Sign([]byte(unsignedXML), pfx, password)
	assert.ErrorIs(t, err, domain.ErrCertificateExpired)
}

func TestSign_ClaveIncorrectaNoSeFiltra(t *testing.T) {
	pfx, _ := newP12(t, signingTime.AddDate(-1, 0, 0), signingTime.AddDate(1, 0, 0))

	_, err := newService().Sign([]byte(unsignedXML), pfx, "otra-clave-secreta")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "otra-clave-secreta")
	assert.NotContains(t, err.Error(), password)
}

func TestSign_SinCertificado(t *testing.T) {
	_, err := newService().Sign([]byte(unsignedXML), nil, password)
	assert.ErrorIs(t, err, domain.ErrCertificateMissing)
}

func TestSign_RaizSinIDComprobante(t *testing.T) {
	pfx, _ := newP12(t, signingTime.AddDate(-1, 0, 0), signingTime.AddDate(1, 0, 0))

	_, err := newService().Sign([]byte(`<factura version="1.1.0"/>`), pfx, password)
	assert.Error(t, err)
}

func TestSign_YaFirmado(t *testing.T) {
	pfx, _ := newP12(t, signingTime.AddDate(-1, 0, 0), signingTime.AddDate(1, 0, 0))
	svc := newService()

	signed, err := svc.Sign([]byte(unsignedXML), pfx, password)
	require.NoError(t, err)
	_, err = svc.Sign(signed, pfx, password)
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inspección del certificado
// ──────────────────────────────────────────────────────────────────────────────

func TestInspect_DevuelveSujetoYVencimiento(t *testing.T) {
	notAfter := signingTime.AddDate(1, 0, 0).Truncate(time.Second)
	pfx, _ := newP12(t, signingTime.AddDate(-1, 0, 0), notAfter)

	subject, expires, err := newService().Inspect(pfx, password)
	require.NoError(t, err)
	assert.Equal(t, "COMERCIAL ANDINA S.A.", subject)
	assert.True(t, expires.Equal(notAfter))
}

func TestInspect_ClaveIncorrecta(t *testing.T) {
	pfx, _ := newP12(t, signingTime.AddDate(-1, 0, 0), signingTime.AddDate(1, 0, 0))

	_, _, err := newService().Inspect(pfx, "no-es-la-clave")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "no-es-la-clave")
}

func TestInspect_Vencido(t *testing.T) {
	pfx, _ := newP12(t, signingTime.AddDate(-2, 0, 0), signingTime.AddDate(0, -1, 0))

	_, _, err := newService().Inspect(pfx, password)
	assert.ErrorIs(t, err, domain.ErrCertificateExpired)
}
