package billing

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
)

// TxRunner ejecuta una función dentro de una transacción con los repos de comprobantes
// y puntos de emisión, de modo que un secuencial asignado siempre queda ligado a un comprobante.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(
		docRepo repository.ElectronicDocumentRepository,
		pointRepo repository.EmissionPointRepository,
	) error) error
}

// XMLDocumentBuilder construye el XML del comprobante (nodo raíz con id="comprobante")
// y devuelve la clave de acceso usada. Si el comprobante ya tiene clave, la reutiliza.
type XMLDocumentBuilder interface {
	Build(ctx context.Context, doc entity.SRIDocument, cfg *entity.SRIConfiguration,
		est *entity.Establishment, point *entity.EmissionPoint) (xml []byte, accessKey string, err error)
}

// XMLSignatureService firma el XML con XAdES-BES usando el certificado .p12 del tenant.
type XMLSignatureService interface {
	Sign(xml, certificate []byte, password string) ([]byte, error)
}

// CertificateInspector valida un .p12 con su contraseña y devuelve sujeto y vencimiento.
type CertificateInspector interface {
	Inspect(certificate []byte, password string) (subject string, notAfter time.Time, err error)
}

// SRIWebServiceClient cliente de los web services offline del SRI.
type SRIWebServiceClient interface {
	SubmitDocument(ctx context.Context, signedXML []byte, env entity.Environment) (*domainsri.SubmissionResult, error)
	CheckAuthorization(ctx context.Context, accessKey string, env entity.Environment) (*domainsri.AuthorizationResult, error)
}

// RideRenderer genera el PDF (RIDE) de un comprobante autorizado.
type RideRenderer interface {
	Render(ctx context.Context, doc entity.SRIDocument, cfg *entity.SRIConfiguration,
		est *entity.Establishment, point *entity.EmissionPoint) ([]byte, error)
}

// ArtifactStore almacenamiento de XML, XML firmado y RIDE.
// Load devuelve domain.ErrFileNotFound si la clave no existe.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Load(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// OperationMetrics registra duración y resultado de cada operación SRI.
type OperationMetrics interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string, time.Duration) {}
