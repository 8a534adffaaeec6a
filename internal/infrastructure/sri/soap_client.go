package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

const defaultMaxResponseBytes = 4 << 20

// authorizationDateLayouts formatos observados en fechaAutorizacion.
var authorizationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999-07:00",
	"02/01/2006 15:04:05",
}

// SOAPClient implementa billing.SRIWebServiceClient contra los web services offline del SRI.
type SOAPClient struct {
	httpClient *http.Client
	cfg        config.SRIConfig
}

// NewSOAPClient construye el cliente. El timeout sale de la configuración (SRI_TIMEOUT_SECONDS).
func NewSOAPClient(cfg config.SRIConfig) *SOAPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	return &SOAPClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

var _ billing.SRIWebServiceClient = (*SOAPClient)(nil)

// SubmitDocument envía el XML firmado al servicio de recepción (validarComprobante).
func (c *SOAPClient) SubmitDocument(ctx context.Context, signedXML []byte, env entity.Environment) (*domainsri.SubmissionResult, error) {
	if len(signedXML) == 0 {
		return nil, fmt.Errorf("soap: XML firmado vacío")
	}
	body := &validarComprobanteBody{XML: base64.StdEncoding.EncodeToString(signedXML)}
	raw, err := c.call(ctx, c.cfg.ReceptionURL(string(env)), nsRecepcion, body)
	if err != nil {
		return nil, err
	}
	resp, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if resp.Body.Validar == nil {
		return nil, fmt.Errorf("soap: respuesta de recepción vacía o inesperada: %s", truncate(raw))
	}

	r := resp.Body.Validar.Respuesta
	result := &domainsri.SubmissionResult{
		IsSuccess: r.Estado == pkgsri.ReceptionReceived,
		Status:    r.Estado,
	}
	for _, comp := range r.Comprobantes {
		result.Errors = append(result.Errors, toMessages(comp.Mensajes)...)
	}
	if len(result.Errors) > 0 {
		result.Message = result.Errors[0].Message
	}
	return result, nil
}

// CheckAuthorization consulta autorizacionComprobante con la clave de acceso.
// Sin autorizaciones en la respuesta el comprobante sigue EN PROCESO.
func (c *SOAPClient) CheckAuthorization(ctx context.Context, accessKey string, env entity.Environment) (*domainsri.AuthorizationResult, error) {
	if !domainsri.IsValid(accessKey) {
		return nil, fmt.Errorf("soap: clave de acceso inválida %q", accessKey)
	}
	body := &autorizacionComprobanteBody{AccessKey: accessKey}
	raw, err := c.call(ctx, c.cfg.AuthorizationURL(string(env)), nsAutorizacion, body)
	if err != nil {
		return nil, err
	}
	resp, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if resp.Body.Autorizacion == nil {
		return nil, fmt.Errorf("soap: respuesta de autorización vacía o inesperada: %s", truncate(raw))
	}
	return toAuthorizationResult(resp.Body.Autorizacion.Respuesta), nil
}

func toAuthorizationResult(r respuestaAutorizacion) *domainsri.AuthorizationResult {
	if len(r.Autorizaciones) == 0 {
		return &domainsri.AuthorizationResult{Status: pkgsri.AuthorizationInProcess}
	}
	// El SRI devuelve todas las autorizaciones de la clave; prevalece la autorizada si existe.
	a := r.Autorizaciones[0]
	for _, cand := range r.Autorizaciones {
		if strings.TrimSpace(cand.Estado) == pkgsri.AuthorizationAuthorized {
			a = cand
			break
		}
	}
	status := strings.TrimSpace(a.Estado)
	result := &domainsri.AuthorizationResult{
		IsAuthorized:        status == pkgsri.AuthorizationAuthorized,
		Status:              status,
		AuthorizationNumber: strings.TrimSpace(a.NumeroAutorizacion),
		Errors:              toMessages(a.Mensajes),
		AuthorizedXML:       strings.TrimSpace(a.Comprobante),
	}
	if t, ok := parseAuthorizationDate(a.FechaAutorizacion); ok {
		result.AuthorizationDate = &t
	}
	return result
}

func parseAuthorizationDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range authorizationDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// call serializa el envelope, hace el POST y devuelve el cuerpo leído con límite de tamaño.
func (c *SOAPClient) call(ctx context.Context, url, ns string, body interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		XmlnsS:  soapNS,
		XmlnsEc: ns,
		Body:    soapBody{Content: body},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeSOAP)
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}
	// Un Fault llega con HTTP 500; se deja pasar para extraer faultstring.
	if resp.StatusCode >= 300 && !bytes.Contains(raw, []byte("Fault")) {
		return nil, fmt.Errorf("soap: HTTP %d: %s", resp.StatusCode, truncate(raw))
	}
	return raw, nil
}

func parseEnvelope(raw []byte) (*soapResponseEnvelope, error) {
	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("soap: no se pudo parsear la respuesta: %w", err)
	}
	if f := env.Body.Fault; f != nil {
		return nil, fmt.Errorf("soap: fault [%s]: %s", f.FaultCode, f.FaultString)
	}
	return &env, nil
}

func truncate(raw []byte) string {
	const max = 512
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
