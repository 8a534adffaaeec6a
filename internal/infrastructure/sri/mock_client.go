package sri

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// DevClient cliente local para SRI_MODE=dev: no llama al SRI, recibe y autoriza todo
// comprobante con clave válida. Guarda el XML enviado para devolverlo como autorizado.
type DevClient struct {
	mu       sync.Mutex
	received map[string]string
	now      func() time.Time
}

// NewDevClient crea el cliente de desarrollo.
func NewDevClient() *DevClient {
	return &DevClient{received: map[string]string{}, now: time.Now}
}

var _ billing.SRIWebServiceClient = (*DevClient)(nil)

func (c *DevClient) SubmitDocument(ctx context.Context, signedXML []byte, _ entity.Environment) (*domainsri.SubmissionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := extractAccessKey(signedXML)
	if err != nil {
		return &domainsri.SubmissionResult{
			Status:  pkgsri.ReceptionReturned,
			Message: err.Error(),
			Errors:  toMessages([]mensajeSRI{{Identificador: "35", Mensaje: "ARCHIVO NO CUMPLE ESTRUCTURA XML", InformacionAdicional: err.Error(), Tipo: "ERROR"}}),
		}, nil
	}
	c.mu.Lock()
	c.received[key] = string(signedXML)
	c.mu.Unlock()
	return &domainsri.SubmissionResult{IsSuccess: true, Status: pkgsri.ReceptionReceived}, nil
}

func (c *DevClient) CheckAuthorization(ctx context.Context, accessKey string, _ entity.Environment) (*domainsri.AuthorizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	xml, ok := c.received[accessKey]
	c.mu.Unlock()
	if !ok {
		return &domainsri.AuthorizationResult{Status: pkgsri.AuthorizationInProcess}, nil
	}
	now := c.now()
	return &domainsri.AuthorizationResult{
		IsAuthorized:        true,
		Status:              pkgsri.AuthorizationAuthorized,
		AuthorizationNumber: accessKey,
		AuthorizationDate:   &now,
		AuthorizedXML:       xml,
	}, nil
}

// extractAccessKey lee infoTributaria/claveAcceso y valida el dígito verificador.
func extractAccessKey(signedXML []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return "", fmt.Errorf("parsear XML: %w", err)
	}
	el := doc.FindElement("//infoTributaria/claveAcceso")
	if el == nil {
		return "", fmt.Errorf("el XML no contiene infoTributaria/claveAcceso")
	}
	key := el.Text()
	if !domainsri.IsValid(key) {
		return "", fmt.Errorf("clave de acceso %q inválida", key)
	}
	return key, nil
}
