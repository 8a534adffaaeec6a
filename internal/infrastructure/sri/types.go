package sri

import (
	"encoding/xml"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

const (
	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion     = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion  = "http://ec.gob.sri.ws.autorizacion"
	opValidar       = "validarComprobante"
	opAutorizacion  = "autorizacionComprobante"
	contentTypeSOAP = "text/xml; charset=utf-8"
)

// ── Estructuras de petición ──────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	XmlnsEc string     `xml:"xmlns:ec,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// validarComprobanteBody el comprobante firmado viaja en Base64.
type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"`
}

type autorizacionComprobanteBody struct {
	XMLName   xml.Name `xml:"ec:autorizacionComprobante"`
	AccessKey string   `xml:"claveAccesoComprobante"`
}

// ── Estructuras de respuesta ─────────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Validar      *validarComprobanteResponse      `xml:"validarComprobanteResponse"`
	Autorizacion *autorizacionComprobanteResponse `xml:"autorizacionComprobanteResponse"`
	Fault        *soapFault                       `xml:"Fault"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type validarComprobanteResponse struct {
	Respuesta respuestaRecepcion `xml:"RespuestaRecepcionComprobante"`
}

type respuestaRecepcion struct {
	Estado       string                 `xml:"estado"`
	Comprobantes []comprobanteRecepcion `xml:"comprobantes>comprobante"`
}

type comprobanteRecepcion struct {
	ClaveAcceso string       `xml:"claveAcceso"`
	Mensajes    []mensajeSRI `xml:"mensajes>mensaje"`
}

type autorizacionComprobanteResponse struct {
	Respuesta respuestaAutorizacion `xml:"RespuestaAutorizacionComprobante"`
}

type respuestaAutorizacion struct {
	ClaveAccesoConsultada string         `xml:"claveAccesoConsultada"`
	NumeroComprobantes    string         `xml:"numeroComprobantes"`
	Autorizaciones        []autorizacion `xml:"autorizaciones>autorizacion"`
}

type autorizacion struct {
	Estado             string       `xml:"estado"`
	NumeroAutorizacion string       `xml:"numeroAutorizacion"`
	FechaAutorizacion  string       `xml:"fechaAutorizacion"`
	Ambiente           string       `xml:"ambiente"`
	Comprobante        string       `xml:"comprobante"`
	Mensajes           []mensajeSRI `xml:"mensajes>mensaje"`
}

type mensajeSRI struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

func toMessages(in []mensajeSRI) []domain.SRIMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.SRIMessage, 0, len(in))
	for _, m := range in {
		out = append(out, domain.SRIMessage{
			Code:    m.Identificador,
			Message: m.Mensaje,
			Info:    m.InformacionAdicional,
			Type:    m.Tipo,
		})
	}
	return out
}
