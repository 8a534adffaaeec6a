package billing

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

var tracer = otel.Tracer("application/billing")

// Resultados de operación para métricas.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// SRIOrchestrator coordina el ciclo del comprobante electrónico frente al SRI:
//
//	GenerateXml → SignXml → SubmitToSri → CheckAuthorization → GenerateRide
//
// Cada operación es síncrona, recibe el tenant del llamador y solo persiste rutas y
// estado después de que el artefacto correspondiente quedó guardado.
type SRIOrchestrator struct {
	docRepo    repository.ElectronicDocumentRepository
	configRepo repository.SRIConfigurationRepository
	pointRepo  repository.EmissionPointRepository
	estRepo    repository.EstablishmentRepository
	errorRepo  repository.SRIErrorLogRepository
	txRunner   TxRunner
	builder    XMLDocumentBuilder
	signer     XMLSignatureService
	client     SRIWebServiceClient
	ride       RideRenderer
	store      ArtifactStore
	metrics    OperationMetrics
	log        zerolog.Logger
	now        func() time.Time
}

// NewSRIOrchestrator construye el orquestador con todas sus dependencias.
// metrics puede ser nil.
func NewSRIOrchestrator(
	docRepo repository.ElectronicDocumentRepository,
	configRepo repository.SRIConfigurationRepository,
	pointRepo repository.EmissionPointRepository,
	estRepo repository.EstablishmentRepository,
	errorRepo repository.SRIErrorLogRepository,
	txRunner TxRunner,
	builder XMLDocumentBuilder,
	signer XMLSignatureService,
	client SRIWebServiceClient,
	ride RideRenderer,
	store ArtifactStore,
	metrics OperationMetrics,
	log zerolog.Logger,
) *SRIOrchestrator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SRIOrchestrator{
		docRepo:    docRepo,
		configRepo: configRepo,
		pointRepo:  pointRepo,
		estRepo:    estRepo,
		errorRepo:  errorRepo,
		txRunner:   txRunner,
		builder:    builder,
		signer:     signer,
		client:     client,
		ride:       ride,
		store:      store,
		metrics:    metrics,
		log:        log.With().Str("component", "sri_orchestrator").Logger(),
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (o *SRIOrchestrator) WithClock(now func() time.Time) *SRIOrchestrator {
	o.now = now
	return o
}

// ═══════════════════════════════════════════════════════════════════════════
// 1. GenerateXml
// ═══════════════════════════════════════════════════════════════════════════

// GenerateXml construye el XML del comprobante, lo guarda y pasa el comprobante a
// PENDING_SIGNATURE. Regenerar desde PENDING_SIGNATURE o PENDING_AUTHORIZATION conserva
// el estado y la clave de acceso e invalida la firma anterior. Sobre un comprobante
// REJECTED inicia un ciclo nuevo: el estado se mantiene hasta la siguiente firma.
func (o *SRIOrchestrator) GenerateXml(ctx context.Context, tenantID, documentID string) (res *dto.SRIOperationResult, err error) {
	ctx, done := o.begin(ctx, entity.OperationGenerateXML, tenantID, documentID)
	defer func() { done(err) }()

	doc, err := o.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()
	switch base.Status {
	case entity.StatusDraft, entity.StatusPendingSignature, entity.StatusPendingAuthorization, entity.StatusRejected:
	default:
		return nil, fmt.Errorf("%w: no se puede generar el XML en estado %s; se requiere DRAFT, PENDING_SIGNATURE o PENDING_AUTHORIZATION",
			domain.ErrPreconditionFailed, base.Status)
	}
	if err := domainsri.ValidateDocument(doc); err != nil {
		return nil, err
	}

	cfg, err := o.loadConfiguration(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	point, est, err := o.loadEmissionPoint(ctx, tenantID, base.EmissionPointID)
	if err != nil {
		return nil, err
	}

	// ── Secuencial pendiente ─────────────────────────────────────────────────
	if base.Sequential == 0 {
		if err := o.allocateSequential(ctx, doc); err != nil {
			return nil, err
		}
	}

	// ── Construcción del XML ─────────────────────────────────────────────────
	xmlBytes, accessKey, err := o.builder.Build(ctx, doc, cfg, est, point)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidArgument) {
			o.recordError(ctx, base, entity.OperationGenerateXML, "XML_BUILD", err.Error(), "")
		}
		return nil, fmt.Errorf("generar XML: %w", err)
	}
	if !domainsri.IsValid(accessKey) {
		return nil, fmt.Errorf("%w: el generador devolvió una clave inválida", domain.ErrInvalidAccessKey)
	}
	if base.AccessKey != "" && base.AccessKey != accessKey {
		return nil, fmt.Errorf("%w: el comprobante ya tiene la clave de acceso %s y no puede cambiarse",
			domain.ErrPreconditionFailed, base.AccessKey)
	}

	// ── Artefacto primero, registro después ──────────────────────────────────
	key := artifactKey(base, accessKey, ".xml")
	if err := o.store.Save(ctx, key, xmlBytes, "application/xml"); err != nil {
		return nil, fmt.Errorf("guardar XML: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := base.Status
	if base.Status == entity.StatusDraft {
		target = entity.StatusPendingSignature
	}
	if base.Status != entity.StatusRejected {
		if err := domainsri.Transition(base.Status, target); err != nil {
			return nil, err
		}
	}
	doc.ApplyXMLResult(key, accessKey, o.now())
	base.Status = target
	if err := o.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("persistir comprobante: %w", err)
	}

	o.logger(base).Info().Str("access_key", accessKey).Str("status", string(base.Status)).Msg("XML generado")
	msg := "XML generado"
	if base.Status == entity.StatusRejected {
		msg = "XML regenerado; firme el comprobante para iniciar un nuevo envío"
	}
	return &dto.SRIOperationResult{Success: true, Message: msg, Document: toDocumentResponse(doc)}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 2. SignXml
// ═══════════════════════════════════════════════════════════════════════════

// SignXml firma el XML generado con el certificado del tenant y pasa el comprobante a
// PENDING_AUTHORIZATION. Un comprobante REJECTED solo puede firmarse si su XML se
// regeneró después del rechazo.
func (o *SRIOrchestrator) SignXml(ctx context.Context, tenantID, documentID string) (res *dto.SRIOperationResult, err error) {
	ctx, done := o.begin(ctx, entity.OperationSignXML, tenantID, documentID)
	defer func() { done(err) }()

	doc, err := o.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()
	switch base.Status {
	case entity.StatusPendingSignature, entity.StatusPendingAuthorization:
	case entity.StatusRejected:
		if !base.HasFreshXMLAfterRejection() {
			return nil, fmt.Errorf("%w: el comprobante fue rechazado; regenere el XML antes de firmarlo", domain.ErrPreconditionFailed)
		}
	default:
		return nil, fmt.Errorf("%w: no se puede firmar en estado %s; se requiere PENDING_SIGNATURE o PENDING_AUTHORIZATION",
			domain.ErrPreconditionFailed, base.Status)
	}

	if base.XMLPath == "" {
		return nil, fmt.Errorf("%w: el comprobante no tiene XML generado", domain.ErrFileNotFound)
	}
	exists, err := o.store.Exists(ctx, base.XMLPath)
	if err != nil {
		return nil, fmt.Errorf("verificar XML: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, base.XMLPath)
	}

	// ── Certificado: se valida antes de cualquier intento de firma ───────────
	cfg, err := o.loadConfiguration(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !cfg.HasCertificate() {
		return nil, fmt.Errorf("%w: cargue el certificado .p12 y su contraseña en la configuración SRI", domain.ErrCertificateMissing)
	}
	if cfg.IsCertificateExpired(o.now()) {
		return nil, fmt.Errorf("%w: venció el %s", domain.ErrCertificateExpired, cfg.CertificateExpiresAt.Format("2006-01-02"))
	}

	xmlBytes, err := o.store.Load(ctx, base.XMLPath)
	if err != nil {
		return nil, fmt.Errorf("leer XML: %w", err)
	}

	signed, err := o.signIsolated(xmlBytes, cfg)
	if err != nil {
		o.recordError(ctx, base, entity.OperationSignXML, "SIGN_ERROR", err.Error(), "")
		return nil, fmt.Errorf("firmar XML: %w", err)
	}

	key := artifactKey(base, base.AccessKey, "_firmado.xml")
	if err := o.store.Save(ctx, key, signed, "application/xml"); err != nil {
		return nil, fmt.Errorf("guardar XML firmado: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := domainsri.Transition(base.Status, entity.StatusPendingAuthorization); err != nil {
		return nil, err
	}
	doc.ApplySignResult(key, o.now())
	base.Status = entity.StatusPendingAuthorization
	if err := o.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("persistir comprobante: %w", err)
	}

	o.logger(base).Info().Msg("XML firmado")
	return &dto.SRIOperationResult{Success: true, Message: "XML firmado", Document: toDocumentResponse(doc)}, nil
}

// signIsolated copia el certificado a un buffer local que se borra al terminar la firma.
func (o *SRIOrchestrator) signIsolated(xmlBytes []byte, cfg *entity.SRIConfiguration) ([]byte, error) {
	cert := make([]byte, len(cfg.CertificateData))
	copy(cert, cfg.CertificateData)
	defer func() {
		for i := range cert {
			cert[i] = 0
		}
	}()
	return o.signer.Sign(xmlBytes, cert, cfg.CertificatePassword.Reveal())
}

// ═══════════════════════════════════════════════════════════════════════════
// 3. SubmitToSri
// ═══════════════════════════════════════════════════════════════════════════

// SubmitToSri envía el XML firmado al servicio de recepción. Un comprobante REJECTED
// no se reenvía: se devuelven los errores registrados para que el usuario corrija y
// regenere. Una respuesta DEVUELTA deja el estado sin cambios y registra cada mensaje.
func (o *SRIOrchestrator) SubmitToSri(ctx context.Context, tenantID, documentID string) (res *dto.SRIOperationResult, err error) {
	ctx, done := o.begin(ctx, entity.OperationSubmitToSRI, tenantID, documentID)
	defer func() { done(err) }()

	doc, err := o.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()

	if base.Status == entity.StatusRejected {
		entries, lerr := o.errorRepo.GetByDocumentID(ctx, tenantID, base.ID)
		if lerr != nil {
			o.logger(base).Warn().Err(lerr).Msg("no se pudo leer el log de errores SRI")
		}
		return nil, &domain.PriorRejectionError{Messages: toSRIMessages(entries)}
	}
	if base.Status != entity.StatusPendingAuthorization {
		return nil, fmt.Errorf("%w: el comprobante está en estado %s; se requiere PENDING_AUTHORIZATION",
			domain.ErrPreconditionFailed, base.Status)
	}
	if base.SignedXMLPath == "" {
		return nil, fmt.Errorf("%w: el comprobante no tiene un XML firmado vigente; fírmelo nuevamente", domain.ErrPreconditionFailed)
	}
	signed, err := o.store.Load(ctx, base.SignedXMLPath)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: XML firmado no disponible (%s)", domain.ErrPreconditionFailed, base.SignedXMLPath)
		}
		return nil, fmt.Errorf("leer XML firmado: %w", err)
	}

	result, err := o.safeSubmit(ctx, signed, base.Environment)
	if err != nil {
		o.recordError(ctx, base, entity.OperationSubmitToSRI, entity.ErrorCodeSOAP, err.Error(), "")
		o.logger(base).Error().Err(err).Msg("fallo en el envío al SRI")
		return nil, fmt.Errorf("%w: no fue posible enviar el comprobante al SRI", domain.ErrUnexpectedFailure)
	}

	if !result.IsSuccess {
		o.recordMessages(ctx, base, entity.OperationSubmitToSRI, result.Status, result.Message, result.Errors)
		o.logger(base).Warn().Str("sri_status", result.Status).Int("errors", len(result.Errors)).Msg("comprobante devuelto por el SRI")
		return nil, &domain.RemoteRejectionError{
			Operation: entity.OperationSubmitToSRI,
			Status:    result.Status,
			Messages:  result.Errors,
		}
	}

	if err := domainsri.Transition(base.Status, entity.StatusPendingAuthorization); err != nil {
		return nil, err
	}
	base.UpdatedAt = o.now()
	if err := o.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("persistir comprobante: %w", err)
	}

	o.logger(base).Info().Str("sri_status", result.Status).Msg("comprobante recibido por el SRI")
	return &dto.SRIOperationResult{
		Success:  true,
		Message:  "Comprobante " + result.Status + "; consulte la autorización",
		Document: toDocumentResponse(doc),
	}, nil
}

func (o *SRIOrchestrator) safeSubmit(ctx context.Context, signed []byte, env entity.Environment) (res *domainsri.SubmissionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic en cliente SRI: %v", r)
		}
	}()
	res, err = o.client.SubmitDocument(ctx, signed, env)
	if err == nil && res == nil {
		err = errors.New("respuesta vacía del servicio de recepción")
	}
	return res, err
}

// ═══════════════════════════════════════════════════════════════════════════
// 4. CheckAuthorization
// ═══════════════════════════════════════════════════════════════════════════

// CheckAuthorization consulta el servicio de autorización. AUTORIZADO pasa el comprobante
// a AUTHORIZED; NO AUTORIZADO o RECHAZADA lo pasa a REJECTED y registra los mensajes;
// EN PROCESO no cambia nada.
func (o *SRIOrchestrator) CheckAuthorization(ctx context.Context, tenantID, documentID string) (res *dto.SRIOperationResult, err error) {
	ctx, done := o.begin(ctx, entity.OperationCheckAuthorization, tenantID, documentID)
	defer func() { done(err) }()

	doc, err := o.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()
	if base.Status != entity.StatusPendingAuthorization {
		return nil, fmt.Errorf("%w: el comprobante está en estado %s; se requiere PENDING_AUTHORIZATION",
			domain.ErrPreconditionFailed, base.Status)
	}
	if base.AccessKey == "" {
		return nil, fmt.Errorf("%w: el comprobante no tiene clave de acceso", domain.ErrPreconditionFailed)
	}

	result, err := o.safeAuthorize(ctx, base.AccessKey, base.Environment)
	if err != nil {
		o.recordError(ctx, base, entity.OperationCheckAuthorization, entity.ErrorCodeSOAP, err.Error(), "")
		o.logger(base).Error().Err(err).Msg("fallo consultando autorización")
		return nil, fmt.Errorf("%w: no fue posible consultar la autorización en el SRI", domain.ErrUnexpectedFailure)
	}

	now := o.now()
	switch {
	case result.IsAuthorized:
		// Una regeneración posterior al envío deja SignedXMLPath vacío; el XML autorizado
		// se guarda igual en la ruta del firmado.
		if result.AuthorizedXML != "" {
			key := base.SignedXMLPath
			if key == "" {
				key = artifactKey(base, base.AccessKey, "_firmado.xml")
			}
			if err := o.store.Save(ctx, key, []byte(result.AuthorizedXML), "application/xml"); err != nil {
				return nil, fmt.Errorf("guardar XML autorizado: %w", err)
			}
			base.SignedXMLPath = key
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := domainsri.Transition(base.Status, entity.StatusAuthorized); err != nil {
			return nil, err
		}
		authorizedAt := result.AuthorizationDate
		if authorizedAt == nil {
			authorizedAt = &now
		}
		number := result.AuthorizationNumber
		if number == "" {
			number = base.AccessKey
		}
		doc.ApplySubmissionResult(entity.SubmissionOutcome{
			Status:              entity.StatusAuthorized,
			AuthorizationNumber: number,
			AuthorizedAt:        authorizedAt,
		}, now)
		if err := o.docRepo.Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("persistir comprobante: %w", err)
		}
		o.logger(base).Info().Str("authorization_number", number).Msg("comprobante autorizado")
		return &dto.SRIOperationResult{Success: true, Message: "Comprobante AUTORIZADO", Document: toDocumentResponse(doc)}, nil

	case result.Status == pkgsri.AuthorizationNotAuthorized || result.Status == pkgsri.AuthorizationRejected:
		if err := domainsri.Transition(base.Status, entity.StatusRejected); err != nil {
			return nil, err
		}
		o.recordMessages(ctx, base, entity.OperationCheckAuthorization, result.Status, "", result.Errors)
		doc.ApplySubmissionResult(entity.SubmissionOutcome{Status: entity.StatusRejected}, now)
		if err := o.docRepo.Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("persistir comprobante: %w", err)
		}
		o.logger(base).Warn().Str("sri_status", result.Status).Msg("comprobante no autorizado")
		return nil, &domain.RemoteRejectionError{
			Operation: entity.OperationCheckAuthorization,
			Status:    result.Status,
			Messages:  result.Errors,
		}
	}

	status := result.Status
	if status == "" {
		status = pkgsri.AuthorizationInProcess
	}
	return &dto.SRIOperationResult{
		Success:  false,
		Message:  "El SRI aún no autoriza el comprobante (" + status + ")",
		Document: toDocumentResponse(doc),
	}, nil
}

func (o *SRIOrchestrator) safeAuthorize(ctx context.Context, accessKey string, env entity.Environment) (res *domainsri.AuthorizationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic en cliente SRI: %v", r)
		}
	}()
	res, err = o.client.CheckAuthorization(ctx, accessKey, env)
	if err == nil && res == nil {
		err = errors.New("respuesta vacía del servicio de autorización")
	}
	return res, err
}

// ═══════════════════════════════════════════════════════════════════════════
// 5. GenerateRide
// ═══════════════════════════════════════════════════════════════════════════

// GenerateRide genera el PDF del comprobante autorizado y guarda su ruta.
func (o *SRIOrchestrator) GenerateRide(ctx context.Context, tenantID, documentID string) (res *dto.SRIOperationResult, err error) {
	ctx, done := o.begin(ctx, entity.OperationGenerateRide, tenantID, documentID)
	defer func() { done(err) }()

	doc, err := o.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	base := doc.Base()
	if base.Status != entity.StatusAuthorized {
		return nil, fmt.Errorf("%w: el RIDE solo se genera para comprobantes AUTHORIZED (estado actual %s)",
			domain.ErrPreconditionFailed, base.Status)
	}
	if base.AccessKey == "" || base.AuthorizationNumber == "" {
		return nil, fmt.Errorf("%w: el comprobante no tiene clave de acceso o número de autorización", domain.ErrPreconditionFailed)
	}

	cfg, err := o.loadConfiguration(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	point, est, err := o.loadEmissionPoint(ctx, tenantID, base.EmissionPointID)
	if err != nil {
		return nil, err
	}

	pdf, err := o.ride.Render(ctx, doc, cfg, est, point)
	if err != nil {
		o.recordError(ctx, base, entity.OperationGenerateRide, "RIDE_ERROR", err.Error(), "")
		return nil, fmt.Errorf("generar RIDE: %w", err)
	}
	key := artifactKey(base, base.AccessKey, ".pdf")
	if err := o.store.Save(ctx, key, pdf, "application/pdf"); err != nil {
		return nil, fmt.Errorf("guardar RIDE: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base.RidePath = key
	base.UpdatedAt = o.now()
	if err := o.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("persistir comprobante: %w", err)
	}

	o.logger(base).Info().Int("bytes", len(pdf)).Msg("RIDE generado")
	return &dto.SRIOperationResult{Success: true, Message: "RIDE generado", Document: toDocumentResponse(doc)}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 6. ListErrors
// ═══════════════════════════════════════════════════════════════════════════

// ListErrors devuelve el log de errores SRI del comprobante.
func (o *SRIOrchestrator) ListErrors(ctx context.Context, tenantID, documentID string) ([]dto.SRIErrorLogResponse, error) {
	doc, err := o.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	entries, err := o.errorRepo.GetByDocumentID(ctx, tenantID, doc.Base().ID)
	if err != nil {
		return nil, fmt.Errorf("listar errores SRI: %w", err)
	}
	return toErrorLogResponses(entries), nil
}

// ── helpers privados ──────────────────────────────────────────────────────────

// begin abre el span y devuelve la función que cierra span y métricas con el error final.
func (o *SRIOrchestrator) begin(ctx context.Context, op, tenantID, documentID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "SRIOrchestrator."+op, trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("document.id", documentID),
	))
	return ctx, func(err error) {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailed
			var rre *domain.RemoteRejectionError
			var pre *domain.PriorRejectionError
			if errors.As(err, &rre) || errors.As(err, &pre) {
				outcome = OutcomeRejected
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("sri.outcome", outcome))
		span.End()
		o.metrics.ObserveOperation(op, outcome, time.Since(start))
	}
}

func (o *SRIOrchestrator) loadDocument(ctx context.Context, tenantID, documentID string) (entity.SRIDocument, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	doc, err := o.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("obtener comprobante: %w", err)
	}
	if doc == nil || doc.Base().TenantID != tenantID || doc.Base().DeletedAt != nil {
		return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, documentID)
	}
	return doc, nil
}

func (o *SRIOrchestrator) loadConfiguration(ctx context.Context, tenantID string) (*entity.SRIConfiguration, error) {
	cfg, err := o.configRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("obtener configuración SRI: %w", err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: registre RUC, razón social y certificado del emisor", domain.ErrConfigurationMissing)
	}
	return cfg, nil
}

func (o *SRIOrchestrator) loadEmissionPoint(ctx context.Context, tenantID, pointID string) (*entity.EmissionPoint, *entity.Establishment, error) {
	if pointID == "" {
		return nil, nil, fmt.Errorf("%w: el comprobante no tiene punto de emisión", domain.ErrPreconditionFailed)
	}
	point, err := o.pointRepo.GetByID(ctx, pointID)
	if err != nil {
		return nil, nil, fmt.Errorf("obtener punto de emisión: %w", err)
	}
	if point == nil || point.TenantID != tenantID {
		return nil, nil, fmt.Errorf("%w: punto de emisión %s no encontrado", domain.ErrPreconditionFailed, pointID)
	}
	est, err := o.estRepo.GetByID(ctx, point.EstablishmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("obtener establecimiento: %w", err)
	}
	if est == nil || est.TenantID != tenantID {
		return nil, nil, fmt.Errorf("%w: establecimiento %s no encontrado", domain.ErrPreconditionFailed, point.EstablishmentID)
	}
	return point, est, nil
}

// allocateSequential asigna el secuencial y lo persiste en la misma transacción.
func (o *SRIOrchestrator) allocateSequential(ctx context.Context, doc entity.SRIDocument) error {
	base := doc.Base()
	return o.txRunner.RunInTx(ctx, func(docRepo repository.ElectronicDocumentRepository, pointRepo repository.EmissionPointRepository) error {
		seq, err := pointRepo.AllocateNext(ctx, base.TenantID, base.EmissionPointID, base.Type)
		if err != nil {
			return fmt.Errorf("asignar secuencial: %w", err)
		}
		base.Sequential = seq
		base.UpdatedAt = o.now()
		return docRepo.Update(ctx, doc)
	})
}

// recordError agrega una fila al log de errores SRI. Un fallo aquí solo se registra en el log.
func (o *SRIOrchestrator) recordError(ctx context.Context, base *entity.ElectronicDocument, op, code, msg, info string) {
	entry := &entity.SRIErrorLog{
		ID:             uuid.New().String(),
		TenantID:       base.TenantID,
		DocumentID:     base.ID,
		Operation:      op,
		ErrorCode:      code,
		Message:        msg,
		AdditionalInfo: info,
		CreatedAt:      o.now(),
	}
	if err := o.errorRepo.Add(context.WithoutCancel(ctx), entry); err != nil {
		o.logger(base).Error().Err(err).Str("error_code", code).Msg("no se pudo registrar el error SRI")
	}
}

func (o *SRIOrchestrator) recordMessages(ctx context.Context, base *entity.ElectronicDocument, op, status, fallback string, msgs []domain.SRIMessage) {
	if len(msgs) == 0 {
		if fallback == "" {
			fallback = "el SRI respondió " + status + " sin mensajes"
		}
		o.recordError(ctx, base, op, status, fallback, "")
		return
	}
	for _, m := range msgs {
		o.recordError(ctx, base, op, m.Code, m.Message, m.Info)
	}
}

func (o *SRIOrchestrator) logger(base *entity.ElectronicDocument) *zerolog.Logger {
	l := o.log.With().
		Str("tenant_id", base.TenantID).
		Str("document_id", base.ID).
		Str("document_type", string(base.Type)).
		Logger()
	return &l
}

// artifactKey ruta del artefacto: <tenant>/<tipo>/<clave><sufijo>.
func artifactKey(base *entity.ElectronicDocument, accessKey, suffix string) string {
	return path.Join(base.TenantID, string(base.Type), accessKey+suffix)
}
