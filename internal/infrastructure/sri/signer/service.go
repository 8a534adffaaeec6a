// Servicio de firma digital XAdES-BES para comprobantes electrónicos del SRI.
// Agrega <ds:Signature> como último hijo del nodo raíz (firma enveloped).

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
)

// DigitalSignatureService firma el XML con el .p12 del tenant.
type DigitalSignatureService struct {
	now func() time.Time
}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{now: time.Now}
}

// WithClock fija el reloj usado para SigningTime y la vigencia del certificado.
func (s *DigitalSignatureService) WithClock(now func() time.Time) *DigitalSignatureService {
	s.now = now
	return s
}

var (
	_ billing.XMLSignatureService  = (*DigitalSignatureService)(nil)
	_ billing.CertificateInspector = (*DigitalSignatureService)(nil)
)

// Inspect implementa billing.CertificateInspector con el mismo reloj que la firma.
func (s *DigitalSignatureService) Inspect(certificate []byte, password string) (string, time.Time, error) {
	cert, err := LoadFromP12(certificate, password, s.now())
	if err != nil {
		return "", time.Time{}, err
	}
	return cert.Leaf.Subject.CommonName, cert.Leaf.NotAfter, nil
}

// signatureIDs identificadores de los nodos referenciados dentro de la firma.
type signatureIDs struct {
	signature   string
	signedInfo  string
	signedProps string
	propsRef    string
	certificate string
	docRef      string
	object      string
	value       string
}

func newSignatureIDs() (signatureIDs, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return signatureIDs{}, err
	}
	sig := fmt.Sprintf("Signature%06d", n.Int64())
	return signatureIDs{
		signature:   sig,
		signedInfo:  sig + "-SignedInfo",
		signedProps: sig + "-SignedProperties",
		propsRef:    "SignedPropertiesID" + sig[len("Signature"):],
		certificate: "Certificate" + sig[len("Signature"):],
		docRef:      "Reference-ID-" + sig[len("Signature"):],
		object:      sig + "-Object",
		value:       "SignatureValue" + sig[len("Signature"):],
	}, nil
}

// Sign implementa billing.XMLSignatureService.
func (s *DigitalSignatureService) Sign(xmlBytes, certificate []byte, password string) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("sri: XML vacío")
	}
	cert, err := LoadFromP12(certificate, password, s.now())
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sri: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sri: documento sin raíz")
	}
	if root.SelectAttrValue("id", "") != ComprobanteID {
		return nil, fmt.Errorf("sri: el nodo raíz debe tener id=%q", ComprobanteID)
	}
	if root.FindElement("./ds:Signature") != nil || root.FindElement("./Signature") != nil {
		return nil, fmt.Errorf("sri: el comprobante ya está firmado")
	}

	ids, err := newSignatureIDs()
	if err != nil {
		return nil, fmt.Errorf("sri: generar identificadores: %w", err)
	}

	// 1) Digest del comprobante (C14N del nodo raíz, sin firma)
	docDigest, err := digestElement(root)
	if err != nil {
		return nil, err
	}

	// 2) KeyInfo y SignedProperties se firman también
	keyInfoXML := buildKeyInfo(ids, cert)
	keyInfoDigest, err := digestString(keyInfoXML)
	if err != nil {
		return nil, err
	}
	signedPropsXML := buildSignedProperties(ids, cert, s.now())
	signedPropsDigest, err := digestString(signedPropsXML)
	if err != nil {
		return nil, err
	}

	// 3) SignedInfo firmado con RSA-SHA1
	signedInfoXML := buildSignedInfo(ids, docDigest, keyInfoDigest, signedPropsDigest)
	canonicalSignedInfo, err := canonicalize([]byte(signedInfoXML))
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar SignedInfo: %w", err)
	}
	hash := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, cert.PrivateKey, crypto.SHA1, hash[:])
	if err != nil {
		return nil, fmt.Errorf("sri: firmar SignedInfo: %w", err)
	}

	// 4) Ensamblar e inyectar como último hijo del comprobante
	signatureXML := buildSignature(ids, signedInfoXML, base64.StdEncoding.EncodeToString(signatureValue), keyInfoXML, signedPropsXML)
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("sri: parsear Signature: %w", err)
	}
	root.AddChild(sigDoc.Root())

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sri: serializar XML firmado: %w", err)
	}
	return out, nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// digestElement SHA-1 en Base64 de la forma canónica del elemento, fuera de su documento.
func digestElement(el *etree.Element) (string, error) {
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	raw, err := d.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("sri: serializar comprobante: %w", err)
	}
	return digestBytes(raw)
}

func digestString(s string) (string, error) { return digestBytes([]byte(s)) }

func digestBytes(raw []byte) (string, error) {
	canonical, err := canonicalize(raw)
	if err != nil {
		return "", fmt.Errorf("sri: canonicalizar: %w", err)
	}
	h := sha1.Sum(canonical)
	return base64.StdEncoding.EncodeToString(h[:]), nil
}

// nsDecl declara ds y etsi en cada nodo digerido para que su forma canónica aislada
// coincida con la forma canónica dentro de <ds:Signature>.
const nsDecl = ` xmlns:ds="` + NamespaceDS + `" xmlns:etsi="` + NamespaceXAdES + `"`

func buildSignedInfo(ids signatureIDs, docDigest, keyInfoDigest, signedPropsDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo` + nsDecl + ` Id="` + ids.signedInfo + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA1 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference Id="` + ids.propsRef + `" Type="` + TypeSignedProps + `" URI="#` + ids.signedProps + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + signedPropsDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`<ds:Reference URI="#` + ids.certificate + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + keyInfoDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`<ds:Reference Id="` + ids.docRef + `" URI="#` + ComprobanteID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + docDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildKeyInfo(ids signatureIDs, cert *Certificate) string {
	pub := cert.PrivateKey.PublicKey
	var sb strings.Builder
	sb.WriteString(`<ds:KeyInfo` + nsDecl + ` Id="` + ids.certificate + `">`)
	sb.WriteString(`<ds:X509Data><ds:X509Certificate>` + base64.StdEncoding.EncodeToString(cert.Leaf.Raw) + `</ds:X509Certificate></ds:X509Data>`)
	sb.WriteString(`<ds:KeyValue><ds:RSAKeyValue>`)
	sb.WriteString(`<ds:Modulus>` + base64.StdEncoding.EncodeToString(pub.N.Bytes()) + `</ds:Modulus>`)
	sb.WriteString(`<ds:Exponent>` + base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()) + `</ds:Exponent>`)
	sb.WriteString(`</ds:RSAKeyValue></ds:KeyValue>`)
	sb.WriteString(`</ds:KeyInfo>`)
	return sb.String()
}

func buildSignedProperties(ids signatureIDs, cert *Certificate, now time.Time) string {
	certDigest, issuerName, serial := CertDigestAndIssuerSerial(cert.Leaf)
	var sb strings.Builder
	sb.WriteString(`<etsi:SignedProperties` + nsDecl + ` Id="` + ids.signedProps + `">`)
	sb.WriteString(`<etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SigningTime>` + now.Format(time.RFC3339) + `</etsi:SigningTime>`)
	sb.WriteString(`<etsi:SigningCertificate><etsi:Cert><etsi:CertDigest>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + certDigest + `</ds:DigestValue></etsi:CertDigest>`)
	sb.WriteString(`<etsi:IssuerSerial><ds:X509IssuerName>` + escapeXML(issuerName) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber></etsi:IssuerSerial>`)
	sb.WriteString(`</etsi:Cert></etsi:SigningCertificate>`)
	sb.WriteString(`</etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SignedDataObjectProperties>`)
	sb.WriteString(`<etsi:DataObjectFormat ObjectReference="#` + ids.docRef + `">`)
	sb.WriteString(`<etsi:Description>contenido comprobante</etsi:Description>`)
	sb.WriteString(`<etsi:MimeType>text/xml</etsi:MimeType>`)
	sb.WriteString(`</etsi:DataObjectFormat>`)
	sb.WriteString(`</etsi:SignedDataObjectProperties>`)
	sb.WriteString(`</etsi:SignedProperties>`)
	return sb.String()
}

func buildSignature(ids signatureIDs, signedInfoXML, signatureValueB64, keyInfoXML, signedPropsXML string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature` + nsDecl + ` Id="` + ids.signature + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue Id="` + ids.value + `">` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(keyInfoXML)
	sb.WriteString(`<ds:Object Id="` + ids.object + `">`)
	sb.WriteString(`<etsi:QualifyingProperties Target="#` + ids.signature + `">`)
	sb.WriteString(signedPropsXML)
	sb.WriteString(`</etsi:QualifyingProperties></ds:Object>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
